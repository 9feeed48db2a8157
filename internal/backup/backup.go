// Package backup walks a MOM backup archive stage by stage and hands each
// finished batch to a Sink.
//
// Stages run in a fixed order since later stages resolve references to
// records of earlier ones. A record that cannot be read or parsed is
// logged and skipped; a missing top-level section or a sink error aborts
// the run.
package backup

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/archive"
	"github.com/lherron/momcheck/internal/bulk"
	"github.com/lherron/momcheck/internal/crosslink"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/parse"
	"github.com/lherron/momcheck/internal/persons"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// Source is the read side of a backup archive
type Source interface {
	ListDirectory(dir string) (*archive.Listing, error)
	ListResourcesRecursive(base string) ([]string, error)
	ReadXML(path string) (*xmldoc.Document, error)
	ReadXMLOptional(path string) (*xmldoc.Document, error)
	Exists(path string) bool
}

// Sink receives the finished batch of each stage
type Sink interface {
	InsertUsers(ctx context.Context, users []*domain.User) error
	InsertImages(ctx context.Context, urls []string) error
	InsertArchives(ctx context.Context, archives []*domain.Archive) error
	InsertFonds(ctx context.Context, fonds []*domain.Fond) error
	InsertFondCharters(ctx context.Context, charters []*domain.FondCharter) error
	InsertCollections(ctx context.Context, collections []*domain.Collection) error
	InsertCollectionCharters(ctx context.Context, charters []*domain.CollectionCharter) error
	InsertBookmarks(ctx context.Context, users []*domain.User) error
	InsertSavedCharters(ctx context.Context, charters []*domain.SavedCharter) error
	InsertPrivateCollections(ctx context.Context, collections []*domain.Collection) error
	InsertPrivateCharters(ctx context.Context, charters []*domain.PrivateCharter) error
	InsertPublicCollections(ctx context.Context, collections []*domain.Collection) error
	InsertPublicCharters(ctx context.Context, charters []*domain.CollectionCharter) error
	InsertPersons(ctx context.Context, persons []*domain.Person, names []*domain.PersonName) error
}

// Options configures a run
type Options struct {
	// ImageURLs is the hosted image list, loaded before charters
	ImageURLs []string
	Alloc     *id.Allocator
	Logger    logrus.FieldLogger
	// Now supplies the fallback sort date of undated charters
	Now          func() time.Time
	ShowProgress bool
	// Summary receives a per-stage summary of kept and skipped records
	Summary io.Writer
}

// StageResult counts the records of one stage
type StageResult struct {
	Stage   string `json:"stage"`
	Total   int    `json:"total"`
	Kept    int    `json:"kept"`
	Skipped int    `json:"skipped"`
}

// Result summarizes a run
type Result struct {
	Stages            []StageResult   `json:"stages"`
	Crosslink         crosslink.Stats `json:"crosslink"`
	IdentityConflicts int             `json:"identity_conflicts"`
	Persons           int             `json:"persons"`
	PersonNames       int             `json:"person_names"`
	Images            int             `json:"images"`
	IDs               map[string]int  `json:"ids"`
}

// Stage returns the counts of the named stage
func (r *Result) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

func (r *Result) record(stage string, total, kept, skipped int) {
	r.Stages = append(r.Stages, StageResult{Stage: stage, Total: total, Kept: kept, Skipped: skipped})
}

// Orchestrator runs the import stages over one archive
type Orchestrator struct {
	src      Source
	opts     Options
	log      logrus.FieldLogger
	alloc    *id.Allocator
	pctx     *parse.Context
	index    *parse.Index
	linker   *crosslink.Linker
	resolver *persons.Resolver
	result   *Result
}

// New prepares a run over src. A fresh allocator is used unless one is given.
func New(src Source, opts Options) *Orchestrator {
	alloc := opts.Alloc
	if alloc == nil {
		alloc = id.NewAllocator()
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}

	pctx := parse.NewContext(alloc, logger)
	if opts.Now != nil {
		pctx.Now = opts.Now
	}

	return &Orchestrator{
		src:      src,
		opts:     opts,
		log:      logger,
		alloc:    alloc,
		pctx:     pctx,
		index:    parse.NewIndex(),
		linker:   crosslink.NewLinker(logger),
		resolver: persons.NewResolver(alloc),
		result:   &Result{},
	}
}

// Run executes every stage in order and returns the run summary. On error
// the summary covers the stages that completed.
func (o *Orchestrator) Run(ctx context.Context, sink Sink) (*Result, error) {
	err := o.run(ctx, sink)
	o.result.Crosslink = o.linker.Stats()
	o.result.IDs = o.alloc.Snapshot()
	if err != nil {
		o.log.WithError(err).Error("import aborted")
		return o.result, err
	}
	o.log.WithFields(logrus.Fields{
		"stages":  len(o.result.Stages),
		"dropped": o.result.Crosslink.DroppedTotal(),
	}).Info("import complete")
	return o.result, nil
}

func (o *Orchestrator) run(ctx context.Context, sink Sink) error {
	users, err := o.users()
	if err != nil {
		return err
	}
	if err := sink.InsertUsers(ctx, users); err != nil {
		return sinkError("users", err)
	}
	o.index.AddUsers(users)

	o.result.Images = len(o.opts.ImageURLs)
	if err := sink.InsertImages(ctx, o.opts.ImageURLs); err != nil {
		return sinkError("images", err)
	}

	if err := o.seedPersons(); err != nil {
		return err
	}

	archives, err := o.archives()
	if err != nil {
		return err
	}
	if err := sink.InsertArchives(ctx, archives); err != nil {
		return sinkError("archives", err)
	}

	fonds, err := o.fonds(archives)
	if err != nil {
		return err
	}
	if err := sink.InsertFonds(ctx, fonds); err != nil {
		return sinkError("fonds", err)
	}
	o.index.AddFonds(fonds)

	fondCharters, err := o.fondCharters(fonds)
	if err != nil {
		return err
	}
	if err := sink.InsertFondCharters(ctx, fondCharters); err != nil {
		return sinkError("fond charters", err)
	}

	collections, err := o.collections()
	if err != nil {
		return err
	}
	if err := sink.InsertCollections(ctx, collections); err != nil {
		return sinkError("collections", err)
	}
	o.index.AddCollections(collections)

	collectionCharters, err := o.collectionCharters(collections)
	if err != nil {
		return err
	}
	if err := sink.InsertCollectionCharters(ctx, collectionCharters); err != nil {
		return sinkError("collection charters", err)
	}

	if err := sink.InsertBookmarks(ctx, users); err != nil {
		return sinkError("bookmarks", err)
	}

	saved, err := o.savedCharters(users)
	if err != nil {
		return err
	}
	if err := sink.InsertSavedCharters(ctx, saved); err != nil {
		return sinkError("saved charters", err)
	}

	privateCollections, err := o.privateCollections(users)
	if err != nil {
		return err
	}
	if err := sink.InsertPrivateCollections(ctx, privateCollections); err != nil {
		return sinkError("private collections", err)
	}

	privateCharters, err := o.privateCharters(privateCollections, users)
	if err != nil {
		return err
	}
	if err := sink.InsertPrivateCharters(ctx, privateCharters); err != nil {
		return sinkError("private charters", err)
	}

	publicCollections, err := o.publicCollections(privateCollections)
	if err != nil {
		return err
	}
	if err := sink.InsertPublicCollections(ctx, publicCollections); err != nil {
		return sinkError("public collections", err)
	}

	publicCharters, err := o.publicCharters(publicCollections, privateCharters)
	if err != nil {
		return err
	}
	if err := sink.InsertPublicCharters(ctx, publicCharters); err != nil {
		return sinkError("public charters", err)
	}

	batches := [][]domain.Charters{
		charters(fondCharters),
		charters(collectionCharters),
		charters(saved),
		charters(privateCharters),
		charters(publicCharters),
	}
	names := o.personNames(batches)
	all := o.resolver.Persons()
	o.result.Persons = len(all)
	o.result.PersonNames = len(names)
	if err := sink.InsertPersons(ctx, all, names); err != nil {
		return sinkError("persons", err)
	}
	return nil
}

// collect runs fn over items with per-record skip handling and records
// the stage counts
func collect[T any](o *Orchestrator, stage string, items []string, fn func(string) (T, error)) ([]T, error) {
	res, err := bulk.Collect(&bulk.Operation{
		Stage:        stage,
		Logger:       o.log,
		ShowProgress: o.opts.ShowProgress,
	}, items, fn)
	if err != nil {
		return nil, err
	}
	o.result.record(stage, res.TotalItems, res.Succeeded, res.Skipped)
	if o.opts.Summary != nil {
		res.PrintSummary(o.opts.Summary, stage)
	}
	o.log.WithFields(logrus.Fields{
		"stage":   stage,
		"kept":    res.Succeeded,
		"skipped": res.Skipped,
	}).Info("stage parsed")
	return res.Items, nil
}

func charters[T domain.Charters](batch []T) []domain.Charters {
	out := make([]domain.Charters, len(batch))
	for i, c := range batch {
		out[i] = c
	}
	return out
}

// StageError wraps a failure of a whole stage
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return "stage " + e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func sinkError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// ErrMissingSection is returned when a required top-level folder has no descriptor
var ErrMissingSection = errors.New("missing backup section")

package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the struct tags of a record
func Validate(record any) error {
	err := structValidator().Struct(record)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid %T: %s", record, strings.Join(msgs, "; "))
}

// ValidateLocation validates a person name location
func ValidateLocation(loc Location) error {
	switch loc {
	case LocationAbstract, LocationBack, LocationTenor:
		return nil
	default:
		return fmt.Errorf("invalid location: must be one of: abstract, back, tenor")
	}
}

// ValidateTier validates a charter tier
func ValidateTier(tier Tier) error {
	switch tier {
	case TierPublic, TierSaved, TierPrivate:
		return nil
	default:
		return fmt.Errorf("invalid tier: must be one of: public, saved, private")
	}
}

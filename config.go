package partdime

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Config carries the build-time settings of the session core. The
// verification budget is fixed per build, not tunable at runtime.
type Config struct {
	VerificationTimeout time.Duration `json:"verification_timeout"`
	TickInterval        time.Duration `json:"tick_interval"`
	StoragePath         string        `json:"storage_path"`
	PhoneRegion         string        `json:"phone_region"`
	Debug               bool          `json:"debug"`
}

// DefaultConfig returns the production defaults: a 5 minute verification
// window polled once a second, with session records stored next to the app
// data.
func DefaultConfig() Config {
	return Config{
		VerificationTimeout: DefaultVerificationTimeout,
		TickInterval:        DefaultTickInterval,
		StoragePath:         "partdime.db",
		PhoneRegion:         "IN",
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.VerificationTimeout, validation.By(positiveDuration)),
		validation.Field(&c.TickInterval, validation.By(positiveDuration)),
		validation.Field(&c.StoragePath, validation.Required),
	)
}

// MonitorOptions translates the config into monitor options for the
// MonitorManager.
func (c Config) MonitorOptions() []MonitorOption {
	return []MonitorOption{
		WithMonitorTimeout(c.VerificationTimeout),
		WithMonitorTickInterval(c.TickInterval),
	}
}

func positiveDuration(value any) error {
	d, _ := value.(time.Duration)
	if d <= 0 {
		return goerrors.New("duration must be positive", goerrors.CategoryValidation)
	}
	return nil
}

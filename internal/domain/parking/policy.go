package parking

import (
	"errors"
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes "5m" style text.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Policy holds every tunable number of the routing and reputation rules.
type Policy struct {
	AlertTTL         Duration
	MessageMaxLength int

	SenderResolvedReward int
	QuickResponseReward  int
	SlowResponseReward   int
	QuickResponseWindow  Duration
	AbusePenalty         int
	SpamReportPenalty    int

	MaxIdentifiersPerOwner int

	SenderVelocityWindow Duration
	SenderVelocityMax    int

	RegistrationVelocityWindow Duration
	RegistrationVelocityMax    int

	ProofMismatchWindow Duration
	ProofMismatchMax    int

	SuspendFlagWindow Duration
	SuspendAfterFlags int
}

func DefaultPolicy() Policy {
	return Policy{
		AlertTTL:         Duration(30 * time.Minute),
		MessageMaxLength: 200,

		SenderResolvedReward: 10,
		QuickResponseReward:  15,
		SlowResponseReward:   5,
		QuickResponseWindow:  Duration(5 * time.Minute),
		AbusePenalty:         50,
		SpamReportPenalty:    50,

		MaxIdentifiersPerOwner: 3,

		SenderVelocityWindow: Duration(10 * time.Minute),
		SenderVelocityMax:    5,

		RegistrationVelocityWindow: Duration(time.Hour),
		RegistrationVelocityMax:    3,

		ProofMismatchWindow: Duration(time.Hour),
		ProofMismatchMax:    3,

		SuspendFlagWindow: Duration(24 * time.Hour),
		SuspendAfterFlags: 3,
	}
}

func (p Policy) Validate() error {
	var problems []error
	positive := func(name string, d Duration) {
		if d <= 0 {
			problems = append(problems, fmt.Errorf("%s must be positive", name))
		}
	}
	nonNegative := func(name string, v int) {
		if v < 0 {
			problems = append(problems, fmt.Errorf("%s must not be negative", name))
		}
	}

	positive("alert_ttl", p.AlertTTL)
	positive("quick_response_window", p.QuickResponseWindow)
	positive("sender_velocity_window", p.SenderVelocityWindow)
	positive("registration_velocity_window", p.RegistrationVelocityWindow)
	positive("proof_mismatch_window", p.ProofMismatchWindow)
	positive("suspend_flag_window", p.SuspendFlagWindow)

	nonNegative("message_max_length", p.MessageMaxLength)
	nonNegative("sender_resolved_reward", p.SenderResolvedReward)
	nonNegative("quick_response_reward", p.QuickResponseReward)
	nonNegative("slow_response_reward", p.SlowResponseReward)
	nonNegative("abuse_penalty", p.AbusePenalty)
	nonNegative("spam_report_penalty", p.SpamReportPenalty)
	nonNegative("sender_velocity_max", p.SenderVelocityMax)
	nonNegative("registration_velocity_max", p.RegistrationVelocityMax)
	nonNegative("proof_mismatch_max", p.ProofMismatchMax)
	nonNegative("suspend_after_flags", p.SuspendAfterFlags)

	if p.MaxIdentifiersPerOwner < 1 {
		problems = append(problems, errors.New("max_identifiers_per_owner must be at least 1"))
	}
	if p.SlowResponseReward > p.QuickResponseReward {
		problems = append(problems, errors.New("slow_response_reward must not exceed quick_response_reward"))
	}
	return errors.Join(problems...)
}

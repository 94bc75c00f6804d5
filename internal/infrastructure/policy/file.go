package policy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
)

const fileVersion = 1

type alertsSection struct {
	TTL              *parking.Duration `toml:"ttl"`
	MessageMaxLength *int              `toml:"message_max_length"`
}

type rewardsSection struct {
	SenderResolved      *int              `toml:"sender_resolved"`
	QuickResponse       *int              `toml:"quick_response"`
	SlowResponse        *int              `toml:"slow_response"`
	QuickResponseWindow *parking.Duration `toml:"quick_response_window"`
	AbusePenalty        *int              `toml:"abuse_penalty"`
	SpamReportPenalty   *int              `toml:"spam_report_penalty"`
}

type registrySection struct {
	MaxIdentifiersPerOwner *int              `toml:"max_identifiers_per_owner"`
	RegistrationWindow     *parking.Duration `toml:"registration_window"`
	RegistrationMax        *int              `toml:"registration_max"`
	ProofMismatchWindow    *parking.Duration `toml:"proof_mismatch_window"`
	ProofMismatchMax       *int              `toml:"proof_mismatch_max"`
}

type velocitySection struct {
	SenderWindow      *parking.Duration `toml:"sender_window"`
	SenderMax         *int              `toml:"sender_max"`
	SuspendWindow     *parking.Duration `toml:"suspend_window"`
	SuspendAfterFlags *int              `toml:"suspend_after_flags"`
}

// policyFile mirrors the TOML layout. Absent keys keep the built-in default.
type policyFile struct {
	Version  int             `toml:"version"`
	Alerts   alertsSection   `toml:"alerts"`
	Rewards  rewardsSection  `toml:"rewards"`
	Registry registrySection `toml:"registry"`
	Velocity velocitySection `toml:"velocity"`
}

// Load reads path over parking.DefaultPolicy. An empty path yields the defaults.
func Load(path string) (parking.Policy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return parking.DefaultPolicy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return parking.Policy{}, errs.Wrapf(err, "read policy file %q", path)
	}
	return Parse(raw)
}

func Parse(raw []byte) (parking.Policy, error) {
	var file policyFile
	decoder := toml.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return parking.Policy{}, errs.Wrap(err, "decode policy toml")
	}
	if file.Version != 0 && file.Version != fileVersion {
		return parking.Policy{}, fmt.Errorf("unsupported policy version %d: expected version = %d", file.Version, fileVersion)
	}

	p := parking.DefaultPolicy()
	setDuration(&p.AlertTTL, file.Alerts.TTL)
	setInt(&p.MessageMaxLength, file.Alerts.MessageMaxLength)

	setInt(&p.SenderResolvedReward, file.Rewards.SenderResolved)
	setInt(&p.QuickResponseReward, file.Rewards.QuickResponse)
	setInt(&p.SlowResponseReward, file.Rewards.SlowResponse)
	setDuration(&p.QuickResponseWindow, file.Rewards.QuickResponseWindow)
	setInt(&p.AbusePenalty, file.Rewards.AbusePenalty)
	setInt(&p.SpamReportPenalty, file.Rewards.SpamReportPenalty)

	setInt(&p.MaxIdentifiersPerOwner, file.Registry.MaxIdentifiersPerOwner)
	setDuration(&p.RegistrationVelocityWindow, file.Registry.RegistrationWindow)
	setInt(&p.RegistrationVelocityMax, file.Registry.RegistrationMax)
	setDuration(&p.ProofMismatchWindow, file.Registry.ProofMismatchWindow)
	setInt(&p.ProofMismatchMax, file.Registry.ProofMismatchMax)

	setDuration(&p.SenderVelocityWindow, file.Velocity.SenderWindow)
	setInt(&p.SenderVelocityMax, file.Velocity.SenderMax)
	setDuration(&p.SuspendFlagWindow, file.Velocity.SuspendWindow)
	setInt(&p.SuspendAfterFlags, file.Velocity.SuspendAfterFlags)

	if err := p.Validate(); err != nil {
		return parking.Policy{}, errs.Wrap(err, "validate policy")
	}
	return p, nil
}

// Encode renders p in the file layout, every key set.
func Encode(p parking.Policy) ([]byte, error) {
	file := policyFile{
		Version: fileVersion,
		Alerts: alertsSection{
			TTL:              &p.AlertTTL,
			MessageMaxLength: &p.MessageMaxLength,
		},
		Rewards: rewardsSection{
			SenderResolved:      &p.SenderResolvedReward,
			QuickResponse:       &p.QuickResponseReward,
			SlowResponse:        &p.SlowResponseReward,
			QuickResponseWindow: &p.QuickResponseWindow,
			AbusePenalty:        &p.AbusePenalty,
			SpamReportPenalty:   &p.SpamReportPenalty,
		},
		Registry: registrySection{
			MaxIdentifiersPerOwner: &p.MaxIdentifiersPerOwner,
			RegistrationWindow:     &p.RegistrationVelocityWindow,
			RegistrationMax:        &p.RegistrationVelocityMax,
			ProofMismatchWindow:    &p.ProofMismatchWindow,
			ProofMismatchMax:       &p.ProofMismatchMax,
		},
		Velocity: velocitySection{
			SenderWindow:      &p.SenderVelocityWindow,
			SenderMax:         &p.SenderVelocityMax,
			SuspendWindow:     &p.SuspendFlagWindow,
			SuspendAfterFlags: &p.SuspendAfterFlags,
		},
	}
	raw, err := toml.Marshal(file)
	if err != nil {
		return nil, errs.Wrap(err, "encode policy toml")
	}
	return raw, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *parking.Duration, src *parking.Duration) {
	if src != nil {
		*dst = *src
	}
}

var errNoPolicy = errors.New("policy store is empty")

// Package wizard drives the multi-page EIN application as an explicit
// state machine: every page is a named step with a declared failure
// policy, so an unexpected page surfaces as a failed transition instead
// of a silent divergence.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/entityops/einfiler/internal/config"
	"github.com/entityops/einfiler/internal/extract"
	"github.com/entityops/einfiler/internal/normalize"
)

var (
	// ErrConfirmationTimeout reports that no proceed/abort decision
	// arrived within the configured window.
	ErrConfirmationTimeout = errors.New("confirmation window elapsed")

	// ErrAborted reports an explicit abort decision from upstream.
	ErrAborted = errors.New("run aborted by confirmation decision")
)

// Controls is the set of page primitives the driver is written against.
// *browser.Controls satisfies it; tests substitute a recorder.
type Controls interface {
	Navigate(ctx context.Context, url string) error
	SuppressPopups(ctx context.Context)
	Fill(ctx context.Context, sel, value, label string) error
	Click(ctx context.Context, sel, label string) error
	SelectRadio(ctx context.Context, id, label string) error
	SelectOption(ctx context.Context, sel, value, label string) error
	Blur(ctx context.Context, sel string)
	Screenshot(ctx context.Context) ([]byte, error)
	WaitVisible(ctx context.Context, sel string) error
	StepTimeout() time.Duration
}

// Confirmer blocks until a proceed/abort decision for the record arrives
// or the timeout elapses.
type Confirmer interface {
	Await(ctx context.Context, recordID string, timeout time.Duration) (bool, error)
}

// ReviewNotifier delivers the pre-submit review screenshot upstream so a
// human can issue the confirmation decision.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, recordID string, screenshot []byte) error
}

// Result is what a completed traversal hands back to the caller.
type Result struct {
	Message    string
	Screenshot []byte
}

// Driver walks one browser session through the wizard.
type Driver struct {
	controls  Controls
	cfg       config.WizardConfig
	logger    *zap.Logger
	confirmer Confirmer
	notifier  ReviewNotifier
}

// NewDriver builds a driver. confirmer and notifier may be nil when
// confirmation mode is disabled.
func NewDriver(controls Controls, cfg config.WizardConfig, logger *zap.Logger, confirmer Confirmer, notifier ReviewNotifier) *Driver {
	return &Driver{controls: controls, cfg: cfg, logger: logger, confirmer: confirmer, notifier: notifier}
}

// plan resolves every normalized value the traversal needs up front.
// Normalization failures are fatal here, before the first page loads.
type plan struct {
	entityRadio string
	isLLC       bool
	stateCode   string
	month, year string
	legalName   string
	description string

	areaCode, phonePrefix, phoneLine string
	ssn3, ssn2, ssn4                 string
	sameAddress                      bool
}

func (d *Driver) plan(f extract.Fields) (plan, error) {
	var p plan

	radio, mapped := normalize.EntityRadio(f.EntityType)
	if !mapped {
		d.logger.Warn("Entity type not in category table; using the additional-types category.",
			zap.String("entity_type", f.EntityType))
	}
	p.entityRadio = radio
	p.isLLC = radio == "limited"

	code, err := normalize.State(f.Physical.State)
	if err != nil {
		return plan{}, fmt.Errorf("cannot resolve business state: %w", err)
	}
	p.stateCode = code

	p.month, p.year, err = normalize.FormationMonthYear(f.FormationDate)
	if err != nil {
		return plan{}, fmt.Errorf("cannot resolve formation date: %w", err)
	}

	p.legalName = normalize.LegalName(f.LegalName)
	p.description = f.BusinessDescription
	if p.description == "" {
		p.description = defaultBusinessPurpose
	}

	p.areaCode, p.phonePrefix, p.phoneLine = normalize.PhoneParts(f.Phone)
	p.ssn3, p.ssn2, p.ssn4 = f.SSNParts()
	p.sameAddress = f.Physical.SameAs(f.Mailing)

	return p, nil
}

// Run executes the traversal for one resolved field set. The returned
// error is nil only when the machine reached its terminal state.
func (d *Driver) Run(ctx context.Context, f extract.Fields) (Result, error) {
	p, err := d.plan(f)
	if err != nil {
		return Result{}, err
	}

	for _, step := range d.steps(f, p) {
		if step.Skip {
			d.logger.Debug("Skipping step.", zap.String("state", step.State))
			continue
		}
		d.logger.Info("Entering step.", zap.String("state", step.State))

		stepCtx, cancel := context.WithTimeout(ctx, d.controls.StepTimeout())
		err := step.Run(stepCtx)
		cancel()

		if err == nil {
			continue
		}
		if step.Policy == Fatal {
			return Result{}, fmt.Errorf("wizard halted at %s: %w", step.State, err)
		}
		d.logger.Warn("Step failed; continuing with page defaults.",
			zap.String("state", step.State), zap.Error(err))
	}

	if d.cfg.ConfirmationEnabled {
		if err := d.awaitConfirmation(ctx, f.RecordID); err != nil {
			return Result{}, err
		}
	}

	result := Result{Message: "EIN application process completed successfully"}
	if !d.cfg.FinalSubmit {
		d.logger.Info("Final submit disabled; stopping at the review page.",
			zap.String("record_id", f.RecordID))
		result.Message = "EIN application completed through final review; submission disabled"
	} else {
		if err := d.controls.Click(ctx, selContinue, "Final Submit"); err != nil {
			return Result{}, fmt.Errorf("wizard halted at final-submit: %w", err)
		}
	}

	if shot, err := d.controls.Screenshot(ctx); err == nil {
		result.Screenshot = shot
	} else {
		d.logger.Warn("Failed to capture terminal screenshot.", zap.Error(err))
	}

	return result, nil
}

// awaitConfirmation publishes the review screenshot and blocks for the
// upstream proceed/abort decision.
func (d *Driver) awaitConfirmation(ctx context.Context, recordID string) error {
	if d.confirmer == nil {
		return fmt.Errorf("confirmation mode enabled without a confirmation store")
	}

	if d.notifier != nil {
		shot, err := d.controls.Screenshot(ctx)
		if err != nil {
			d.logger.Warn("Failed to capture review screenshot.", zap.Error(err))
		}
		// Without the review notice nobody can issue the decision; waiting
		// out the window would only mask the delivery failure.
		if err := d.notifier.NotifyReview(ctx, recordID, shot); err != nil {
			return fmt.Errorf("failed to deliver review notice for %s: %w", recordID, err)
		}
	}

	d.logger.Info("Awaiting confirmation decision.",
		zap.String("record_id", recordID),
		zap.Duration("timeout", d.cfg.ConfirmationTimeout))

	proceed, err := d.confirmer.Await(ctx, recordID, d.cfg.ConfirmationTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, err.Error())
	}
	if !proceed {
		return ErrAborted
	}
	return nil
}

// steps enumerates the machine. Order mirrors the wizard's page order;
// Skip carries the conditional branches.
func (d *Driver) steps(f extract.Fields, p plan) []Step {
	c := d.controls
	return []Step{
		{State: "entry", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Navigate(ctx, d.cfg.StartURL)
		}},
		{State: "begin-application", Policy: Fatal, Run: func(ctx context.Context) error {
			if err := c.Click(ctx, selBegin, "Begin Application"); err != nil {
				return err
			}
			return c.WaitVisible(ctx, anchorLeftContent)
		}},
		{State: "entity-type", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, p.entityRadio, "entity type "+p.entityRadio)
		}},
		{State: "entity-type-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "entity-confirm-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "member-details", Policy: Ignorable, Skip: !p.isLLC, Run: func(ctx context.Context) error {
			if err := c.Fill(ctx, idMemberCount, d.cfg.LLCMembers, "LLC Members"); err != nil {
				return err
			}
			return c.SelectOption(ctx, idMemberState, p.stateCode, "LLC State")
		}},
		{State: "member-details-continue", Policy: Fatal, Skip: !p.isLLC, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "husband-wife", Policy: Ignorable, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, radioMultiMember, "multi-member option")
		}},
		{State: "husband-wife-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "category-confirm-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "reason", Policy: Ignorable, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, radioNewBusiness, "new business option")
		}},
		{State: "reason-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "responsible-party", Policy: Ignorable, Run: func(ctx context.Context) error {
			if err := c.Fill(ctx, idFirstName, f.FirstName, "First Name"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idLastName, f.LastName, "Last Name"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idSSN3, p.ssn3, "SSN first three"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idSSN2, p.ssn2, "SSN middle two"); err != nil {
				return err
			}
			return c.Fill(ctx, idSSN4, p.ssn4, "SSN last four")
		}},
		{State: "responsible-party-role", Policy: Ignorable, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, radioIAmSole, "sole responsible party option")
		}},
		{State: "responsible-party-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "business-address", Policy: Ignorable, Run: func(ctx context.Context) error {
			if err := c.Fill(ctx, idStreet, f.Physical.Street1, "Street Address"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idCity, f.Physical.City, "City"); err != nil {
				return err
			}
			if err := c.SelectOption(ctx, idAddrState, p.stateCode, "Address State"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idZip, f.Physical.Zip, "Zip Code"); err != nil {
				return err
			}
			if p.areaCode == "" {
				return nil
			}
			if err := c.Fill(ctx, idPhoneFirst, p.areaCode, "Phone area code"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idPhoneMid, p.phonePrefix, "Phone prefix"); err != nil {
				return err
			}
			return c.Fill(ctx, idPhoneLast, p.phoneLine, "Phone line")
		}},
		{State: "mailing-address-choice", Policy: Ignorable, Run: func(ctx context.Context) error {
			if p.sameAddress {
				return c.SelectRadio(ctx, radioSameAddress, "same mailing address")
			}
			return c.SelectRadio(ctx, radioDifferentAddress, "different mailing address")
		}},
		{State: "address-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "address-accept", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selAccept, "Accept As Entered")
		}},
		{State: "business-details", Policy: Ignorable, Run: func(ctx context.Context) error {
			if err := c.Fill(ctx, idLegalName, p.legalName, "Legal Business Name"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idCounty, f.Physical.City, "Operational County"); err != nil {
				return err
			}
			return c.SelectOption(ctx, idArticlesState, p.stateCode, "Articles Filed State")
		}},
		{State: "formation-date", Policy: Ignorable, Run: func(ctx context.Context) error {
			if err := c.SelectOption(ctx, idStartMonth, p.month, "Start Month"); err != nil {
				return err
			}
			if err := c.Fill(ctx, idStartYear, p.year, "Start Year"); err != nil {
				return err
			}
			c.Blur(ctx, idStartYear)
			return nil
		}},
		{State: "business-details-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "compliance", Policy: Ignorable, Run: func(ctx context.Context) error {
			for _, radio := range complianceRadios {
				if err := c.SelectRadio(ctx, radio.id, radio.label); err != nil {
					return err
				}
			}
			return nil
		}},
		{State: "compliance-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "activity", Policy: Ignorable, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, radioOther, "other principal activity")
		}},
		{State: "activity-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "service-detail", Policy: Ignorable, Run: func(ctx context.Context) error {
			if err := c.SelectRadio(ctx, radioOther, "other principal service"); err != nil {
				return err
			}
			return c.Fill(ctx, idPleaseSpecify, p.description, "Business Description")
		}},
		{State: "service-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
		{State: "delivery-preference", Policy: Ignorable, Run: func(ctx context.Context) error {
			return c.SelectRadio(ctx, radioReceiveOnline, "receive letter online")
		}},
		{State: "delivery-continue", Policy: Fatal, Run: func(ctx context.Context) error {
			return c.Click(ctx, selContinue, "Continue")
		}},
	}
}

// -----------------------------------------------------------------------
// Authentication Flow - portal SSO login state machine
// -----------------------------------------------------------------------

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

// Portal page selectors. These track the intranet's login markup; the trigger
// control appears more than once in the DOM and the first match is the one
// that opens the credential form.
const (
	loginButtonSelector = "button.intranet-btn-normal"
	userFieldSelector   = "#txtUserID"
	passwordSelector    = "#txtPwd"
	submitScript        = "OnLogon()"
)

// loginState tracks progress through one login attempt.
type loginState int

const (
	stateAwaitLoginButton loginState = iota
	stateAwaitCredentials
	stateSubmitting
	stateAwaitRedirect
	stateVerifyLanding
	stateDone
)

func (s loginState) String() string {
	switch s {
	case stateAwaitLoginButton:
		return "AWAIT_LOGIN_BUTTON"
	case stateAwaitCredentials:
		return "AWAIT_CREDENTIALS"
	case stateSubmitting:
		return "SUBMITTING"
	case stateAwaitRedirect:
		return "AWAIT_REDIRECT"
	case stateVerifyLanding:
		return "VERIFY_LANDING"
	case stateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Flow drives the portal's SSO login sequence on a live page. The whole
// sequence retries as a unit; there are no per-step retries.
type Flow struct {
	config    *common.PipelineConfig
	loginPath string
	secrets   *common.Secrets
	logger    arbor.ILogger
}

// NewFlow creates an authentication flow.
func NewFlow(config *common.PipelineConfig, loginPath string, secrets *common.Secrets, logger arbor.ILogger) *Flow {
	return &Flow{
		config:    config,
		loginPath: loginPath,
		secrets:   secrets,
		logger:    logger,
	}
}

// Required reports whether the page has been redirected to the login screen.
func (f *Flow) Required(ctx context.Context, page interfaces.RemotePage) (bool, error) {
	url, err := page.Location(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to determine login state: %w", err)
	}
	return strings.Contains(url, f.loginPath), nil
}

// Login runs the full authentication sequence, retrying the whole sequence up
// to the configured attempt budget. A failure returns a classified error
// carrying the number of attempts consumed.
func (f *Flow) Login(ctx context.Context, page interfaces.RemotePage) error {
	err := common.Retry(ctx, common.RetryConfig{
		MaxAttempts: f.config.LoginMaxAttempts,
		Backoff:     f.config.LoginRetryPause,
	}, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			f.logger.Warn().Int("attempt", attempt).Msg("Retrying login sequence")
			if err := page.Reload(ctx); err != nil {
				return fmt.Errorf("reload before retry failed: %w", err)
			}
		}
		return f.attempt(ctx, page, attempt)
	})
	if err != nil {
		attempts := f.config.LoginMaxAttempts
		var retryErr *common.RetryError
		if errors.As(err, &retryErr) {
			attempts = retryErr.Attempts
		}
		return &models.PipelineError{
			Kind:     models.FailureAuthentication,
			Err:      err,
			Attempts: attempts,
		}
	}
	return nil
}

// attempt walks the state machine once. Any step failure aborts the attempt
// and surfaces the state it died in.
func (f *Flow) attempt(ctx context.Context, page interfaces.RemotePage, attempt int) error {
	state := stateAwaitLoginButton

	for state != stateDone {
		f.logger.Debug().
			Int("attempt", attempt).
			Str("state", state.String()).
			Msg("Login state")

		var err error
		switch state {
		case stateAwaitLoginButton:
			if err = page.WaitVisible(ctx, loginButtonSelector, f.config.LoginButtonWait); err == nil {
				err = page.Click(ctx, loginButtonSelector)
			}
			state = stateAwaitCredentials

		case stateAwaitCredentials:
			if err = page.WaitVisible(ctx, userFieldSelector, f.config.CredentialsWait); err == nil {
				if err = page.Fill(ctx, userFieldSelector, f.secrets.LoginID); err == nil {
					err = page.Fill(ctx, passwordSelector, f.secrets.LoginPassword)
				}
			}
			state = stateSubmitting

		case stateSubmitting:
			err = page.Evaluate(ctx, submitScript, nil)
			state = stateAwaitRedirect

		case stateAwaitRedirect:
			script := fmt.Sprintf("!window.location.pathname.startsWith(%q)", f.loginPath)
			err = page.WaitForCondition(ctx, script, f.config.SubmitWait, f.config.StatePollInterval)
			state = stateVerifyLanding

		case stateVerifyLanding:
			err = f.verifyLanding(ctx, page)
			state = stateDone
		}

		if err != nil {
			return fmt.Errorf("login failed in state %s: %w", stateName(state), err)
		}
	}

	f.logger.Info().Int("attempt", attempt).Msg("Login sequence completed")
	return nil
}

// verifyLanding confirms the post-login page settled away from the login
// screen. Redirect chains on this portal can bounce back to login when the
// session token is rejected.
func (f *Flow) verifyLanding(ctx context.Context, page interfaces.RemotePage) error {
	if err := page.WaitForCondition(ctx, "document.readyState === \"complete\"",
		f.config.LandingWait, f.config.StatePollInterval); err != nil {
		return fmt.Errorf("landing page did not settle: %w", err)
	}

	url, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read landing location: %w", err)
	}
	if strings.Contains(url, f.loginPath) {
		return fmt.Errorf("still on login page after submit: %s", url)
	}

	return nil
}

// stateName reports the state an error occurred in. The machine advances the
// state variable before checking the error, so the failed state is the
// previous one.
func stateName(next loginState) string {
	if next == stateAwaitLoginButton {
		return stateAwaitLoginButton.String()
	}
	return (next - 1).String()
}

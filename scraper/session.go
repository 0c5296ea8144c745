package scraper

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gsc_coverage/browser"
	"gsc_coverage/models"
	"gsc_coverage/selectors"
)

type Credentials struct {
	Email    string
	Password string
}

type SessionOptions struct {
	NavTimeout time.Duration
	// ChallengeTimeout bounds the probe for a 2-step prompt.
	ChallengeTimeout time.Duration
	// ChallengeGrace is the pause given to read the prompt before polling.
	ChallengeGrace time.Duration
	// ChallengeWindow is how long the user has to approve the prompt.
	ChallengeWindow time.Duration
	// WelcomeTimeout bounds the final wait for the console; zero waits forever.
	WelcomeTimeout time.Duration
	KeyDelay       time.Duration
	DebugPrefix    string
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		NavTimeout:       60 * time.Second,
		ChallengeTimeout: 3 * time.Second,
		ChallengeGrace:   10 * time.Second,
		ChallengeWindow:  30 * time.Second,
		KeyDelay:         50 * time.Millisecond,
		DebugPrefix:      "debug_page",
	}
}

// Session signs in to the console and picks the properties to scrape.
type Session struct {
	page       browser.Page
	creds      Credentials
	opts       SessionOptions
	properties []string
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewSession(page browser.Page, creds Credentials, properties []string, opts SessionOptions) *Session {
	return &Session{
		page:       page,
		creds:      creds,
		opts:       opts,
		properties: properties,
		sleep:      sleepContext,
	}
}

// Login walks the sign-in flow. Any error it returns ends the run.
func (s *Session) Login(ctx context.Context) error {
	log.Println("Opening Search Console...")
	if err := s.page.Goto(ctx, selectors.WelcomeURL); err != nil {
		return &models.AuthenticationError{Reason: "open welcome page: " + err.Error()}
	}

	log.Println("Entering email...")
	if err := s.page.WaitFor(selectors.EmailInput, s.opts.NavTimeout); err != nil {
		return s.fatal(selectors.EmailInput)
	}
	if err := s.page.Fill(selectors.EmailInput, s.creds.Email, 0); err != nil {
		return s.fatal(selectors.EmailInput)
	}
	if err := s.page.Press("Enter"); err != nil {
		return &models.AuthenticationError{Reason: "submit email: " + err.Error()}
	}

	log.Println("Entering password...")
	if err := s.page.WaitFor(selectors.PasswordInput, s.opts.NavTimeout); err != nil {
		if s.present(selectors.AccountNotFound) {
			return &models.AuthenticationError{Reason: "account not found"}
		}
		return s.fatal(selectors.PasswordInput)
	}
	if err := s.page.Fill(selectors.PasswordInput, s.creds.Password, s.opts.KeyDelay); err != nil {
		return s.fatal(selectors.PasswordInput)
	}
	if err := s.page.Press("Enter"); err != nil {
		return &models.AuthenticationError{Reason: "submit password: " + err.Error()}
	}

	if err := s.page.WaitFor(selectors.TwoStepMarker, s.opts.ChallengeTimeout); err == nil {
		if err := s.awaitChallenge(ctx); err != nil {
			return err
		}
	} else {
		log.Println("No 2-step Verification was detected. Accessing Search Console...")
		if s.present(selectors.WrongPassword) {
			return &models.AuthenticationError{Reason: "wrong password"}
		}
	}

	s.checkBlocked()

	if err := s.page.WaitFor(selectors.WelcomeMarker, s.opts.WelcomeTimeout); err != nil {
		return s.fatal(selectors.WelcomeMarker)
	}
	log.Println("Signed in to Search Console")
	return nil
}

func (s *Session) awaitChallenge(ctx context.Context) error {
	log.Printf("You have 2-step Verification enabled. Check your device to pass to the next step. Waiting %s", s.opts.ChallengeWindow)
	if err := s.sleep(ctx, s.opts.ChallengeGrace); err != nil {
		return err
	}
	err := s.page.WaitFor(selectors.WelcomeMarker, s.opts.ChallengeWindow)
	if errors.Is(err, browser.ErrTimeout) {
		log.Printf("Warning: %v, continuing", models.ErrChallengeTimeout)
		return nil
	}
	return err
}

// Properties returns the configured properties, or the ones offered by the
// console's property picker when none are configured.
func (s *Session) Properties() ([]string, error) {
	if len(s.properties) > 0 {
		return s.properties, nil
	}

	items, err := s.page.QueryAll(selectors.PropertyItem)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var props []string
	for _, item := range items {
		id, ok, err := item.Attr(selectors.PropertyItemAttr)
		if err != nil || !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		props = append(props, id)
	}
	log.Printf("Discovered %d properties from the property picker", len(props))
	return props, nil
}

func (s *Session) present(selector string) bool {
	el, err := s.page.QueryOne(selector)
	return err == nil && el != nil
}

func (s *Session) fatal(selector string) error {
	s.saveDebug(s.opts.DebugPrefix)
	return &models.SelectorTimeout{Selector: selector, Fatal: true}
}

func (s *Session) saveDebug(prefix string) {
	if err := s.page.SaveDebug(prefix); err != nil {
		log.Printf("Failed to save debug page: %v", err)
		return
	}
	log.Printf("Saved debug page to %s.html", prefix)
}

func (s *Session) checkBlocked() {
	content, err := s.page.RawSource()
	if err != nil {
		return
	}
	if trigger := detectBlocked(content); trigger != "" {
		log.Printf("Warning: automated traffic page detected (%s)", trigger)
		s.saveDebug(s.opts.DebugPrefix + "_blocked")
	}
}

// detectBlocked returns the marker of an anti-automation page, or "".
func detectBlocked(content string) string {
	for _, t := range selectors.BlockedMarkers {
		if strings.Contains(content, t) {
			return t
		}
	}
	return ""
}

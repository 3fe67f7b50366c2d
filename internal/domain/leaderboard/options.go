package leaderboard

import "github.com/okian/badgeboard/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithEnabled sets the initial value of the feature flag.
func WithEnabled(enabled bool) Option {
	return func(s *Store) {
		s.enabled.Store(enabled)
	}
}

// WithPresenter sets the collaborator that shows scoreboards. If it also
// implements RunNotifier it is told about run starts and cancellations.
func WithPresenter(p Presenter) Option {
	return func(s *Store) {
		s.presenter = p
	}
}

// WithDisplay sets which notifications reach the presenter.
func WithDisplay(d Display) Option {
	return func(s *Store) {
		s.SetDisplay(d)
	}
}

// WithSubmitter sets the collaborator that submits finished runs.
func WithSubmitter(sub Submitter) Option {
	return func(s *Store) {
		s.submitter = sub
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Package session tracks in-flight device-authorization sessions.
//
// A session moves through exactly three states: created (unverified),
// verified, and consumed. Consumption removes the entry, so at most one
// token exchange can ever succeed per device code. Expired entries are
// purged lazily by whichever lookup trips over them; sessions are
// short-lived and lookup volume is bounded by polling clients, so no
// background sweep is needed.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielballan/auth-adventures/pkg/idx"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrExpired         = errors.New("session: expired")
	ErrNotVerified     = errors.New("session: not verified")
	ErrAlreadyVerified = errors.New("session: already verified")
)

// Session is one in-flight device authorization.
type Session struct {
	ID         idx.ID
	UserCode   string
	DeviceCode string
	Deadline   time.Time

	// Subject is the verified identity, attached exactly once by
	// MarkVerified. Empty means the user hasn't completed verification.
	Subject string

	CreatedAt time.Time
}

func (s Session) verified() bool { return s.Subject != "" }

// Store is an in-memory session store. All state lives behind one mutex:
// the contended operations are tiny map lookups, so a single lock keeps the
// at-most-once consume contract trivially correct without sharding.
type Store struct {
	mu       sync.Mutex
	byDevice map[string]*Session
	byUser   map[string]string // user code -> device code

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byDevice: make(map[string]*Session),
		byUser:   make(map[string]string),
		now:      time.Now,
	}
}

// Create generates a fresh session with a unique user code and device code,
// valid until now + ttl.
func (st *Store) Create(ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		return Session{}, fmt.Errorf("session: ttl must be positive, got %v", ttl)
	}

	deviceCode, err := generateDeviceCode()
	if err != nil {
		return Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// User codes are short, so collisions among live sessions are possible
	// in principle. Regenerate rather than fail; a handful of attempts is
	// more than enough at 16^8 combinations.
	var userCode string
	for attempt := 0; ; attempt++ {
		userCode, err = generateUserCode()
		if err != nil {
			return Session{}, err
		}
		if _, taken := st.byUser[userCode]; !taken {
			break
		}
		if attempt >= maxCodeAttempts {
			return Session{}, errors.New("session: could not generate a unique user code")
		}
	}

	now := st.now()
	sess := &Session{
		ID:         idx.New(),
		UserCode:   userCode,
		DeviceCode: deviceCode,
		Deadline:   now.Add(ttl),
		CreatedAt:  now,
	}

	st.byDevice[deviceCode] = sess
	st.byUser[userCode] = deviceCode

	return *sess, nil
}

// MarkVerified attaches the verified subject to the session identified by
// userCode. A session past its deadline is treated as not found. Verifying
// a session twice is an error; the first verification wins.
func (st *Store) MarkVerified(userCode, subject string) error {
	if subject == "" {
		return errors.New("session: subject must not be empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	deviceCode, ok := st.byUser[userCode]
	if !ok {
		return ErrNotFound
	}
	sess := st.byDevice[deviceCode]

	if st.now().After(sess.Deadline) {
		st.removeLocked(sess)
		return ErrNotFound
	}

	if sess.verified() {
		return ErrAlreadyVerified
	}

	sess.Subject = subject
	return nil
}

// Consume removes and returns the session identified by deviceCode. This is
// the exclusive hand-off point: under concurrent calls exactly one caller
// gets the session, the rest see ErrNotFound. An unverified session is left
// in place (the client should keep polling); an expired one is purged.
func (st *Store) Consume(deviceCode string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.byDevice[deviceCode]
	if !ok {
		return Session{}, ErrNotFound
	}

	if st.now().After(sess.Deadline) {
		st.removeLocked(sess)
		return Session{}, ErrExpired
	}

	if !sess.verified() {
		return Session{}, ErrNotVerified
	}

	st.removeLocked(sess)
	return *sess, nil
}

// Len reports the number of live sessions (including not-yet-purged expired
// entries).
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byDevice)
}

func (st *Store) removeLocked(sess *Session) {
	delete(st.byDevice, sess.DeviceCode)
	delete(st.byUser, sess.UserCode)
}

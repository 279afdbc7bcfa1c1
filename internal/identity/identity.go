// Package identity is the site's identity collaborator: email/password
// accounts, server-side sessions and a push stream of the user bound to a
// session.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agency/internal/docstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const accountsCollection = "accounts"

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password too short")
)

const MinPasswordLength = 6

type User struct {
	UID      string
	Email    string
	PhotoURL string
}

type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Provider is what pages and handlers need from identity.
type Provider interface {
	SignUp(ctx context.Context, email string, password string) (*Session, error)
	SignIn(ctx context.Context, email string, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// Current returns nil without error when the token has no live session.
	Current(ctx context.Context, token string) (*User, error)
	// Watch calls fn with the session's user now and again whenever it
	// changes; nil means signed out. The returned func stops the stream.
	Watch(token string, fn func(*User)) (stop func())
}

type account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Options struct {
	Store      docstore.Store
	Logger     *zap.Logger
	SessionTTL time.Duration
	// Cost is the bcrypt cost; zero uses bcrypt.DefaultCost.
	Cost int
	Now  func() time.Time
}

// Local keeps accounts in the document store and sessions in memory.
type Local struct {
	store  docstore.Store
	logger *zap.Logger
	ttl    time.Duration
	cost   int
	now    func() time.Time

	signupMu sync.Mutex

	mu        sync.Mutex
	sessions  map[string]*Session
	expiry    map[string]*time.Timer
	watchers  map[string]map[uint64]*watcher
	nextWatch uint64
	// version orders pushes; a watcher drops anything older than what it
	// already saw.
	version uint64
}

type watcher struct {
	mu        sync.Mutex
	fn        func(*User)
	delivered bool
	version   uint64
}

func (w *watcher) deliver(version uint64, user *User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.delivered && version <= w.version {
		return
	}
	w.delivered = true
	w.version = version
	w.fn(user)
}

var _ Provider = (*Local)(nil)

func NewLocal(opts Options) *Local {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Local{
		store:    opts.Store,
		logger:   logger,
		ttl:      ttl,
		cost:     cost,
		now:      now,
		sessions: make(map[string]*Session),
		expiry:   make(map[string]*time.Timer),
		watchers: make(map[string]map[uint64]*watcher),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Local) SignUp(ctx context.Context, email string, password string) (*Session, error) {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	l.signupMu.Lock()
	defer l.signupMu.Unlock()

	if _, _, err := l.findAccount(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	uid := uuid.NewString()
	ref := docstore.Doc(accountsCollection, uid)
	record := account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    l.now().UTC(),
	}
	if err := l.store.Set(docstore.Privileged(ctx), ref, record); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	l.logger.Info("account created", zap.String("uid", uid))
	return l.startSession(User{UID: uid, Email: email}), nil
}

func (l *Local) SignIn(ctx context.Context, email string, password string) (*Session, error) {
	uid, record, err := l.findAccount(ctx, normalizeEmail(email))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return l.startSession(User{UID: uid, Email: record.Email, PhotoURL: record.PhotoURL}), nil
}

func (l *Local) SignOut(_ context.Context, token string) error {
	l.mu.Lock()
	_, ok := l.sessions[token]
	l.dropLocked(token)
	l.mu.Unlock()

	if ok {
		l.publish(token, nil)
	}
	return nil
}

func (l *Local) Current(_ context.Context, token string) (*User, error) {
	return l.lookup(token), nil
}

func (l *Local) Watch(token string, fn func(*User)) func() {
	w := &watcher{fn: fn}

	l.mu.Lock()
	l.nextWatch++
	id := l.nextWatch
	if l.watchers[token] == nil {
		l.watchers[token] = make(map[uint64]*watcher)
	}
	l.watchers[token][id] = w
	user, expired := l.userLocked(token)
	version := l.version
	l.mu.Unlock()

	if expired {
		l.publish(token, nil)
	}
	w.deliver(version, user)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.watchers[token], id)
			if len(l.watchers[token]) == 0 {
				delete(l.watchers, token)
			}
		})
	}
}

// LookupUID resolves the account of email. It reports docstore.ErrNotFound
// when nobody signed up with it.
func (l *Local) LookupUID(ctx context.Context, email string) (string, error) {
	uid, _, err := l.findAccount(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	return uid, nil
}

// SetPhotoURL updates the account photo and pushes the new user to every
// session of that account.
func (l *Local) SetPhotoURL(ctx context.Context, uid string, photoURL string) error {
	ref := docstore.Doc(accountsCollection, uid)
	err := l.store.Update(docstore.Privileged(ctx), ref, map[string]any{"photoURL": photoURL})
	if err != nil {
		return fmt.Errorf("update account photo: %w", err)
	}

	var tokens []string
	l.mu.Lock()
	for token, session := range l.sessions {
		if session.User.UID == uid {
			session.User.PhotoURL = photoURL
			tokens = append(tokens, token)
		}
	}
	l.mu.Unlock()

	for _, token := range tokens {
		l.publish(token, l.lookup(token))
	}
	return nil
}

func (l *Local) startSession(user User) *Session {
	session := &Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: l.now().Add(l.ttl),
	}

	token := session.Token
	l.mu.Lock()
	l.sessions[token] = session
	l.expiry[token] = time.AfterFunc(l.ttl, func() { l.expire(token) })
	l.mu.Unlock()

	copied := *session
	return &copied
}

func (l *Local) lookup(token string) *User {
	l.mu.Lock()
	user, expired := l.userLocked(token)
	l.mu.Unlock()

	if expired {
		l.publish(token, nil)
	}
	return user
}

// userLocked reads the session's user and drops the session once its TTL
// has passed. The caller publishes nil when expired is true.
func (l *Local) userLocked(token string) (user *User, expired bool) {
	if token == "" {
		return nil, false
	}
	session, ok := l.sessions[token]
	if !ok {
		return nil, false
	}
	if !l.now().Before(session.ExpiresAt) {
		l.dropLocked(token)
		return nil, true
	}
	copied := session.User
	return &copied, false
}

func (l *Local) dropLocked(token string) {
	delete(l.sessions, token)
	if timer, ok := l.expiry[token]; ok {
		timer.Stop()
		delete(l.expiry, token)
	}
}

func (l *Local) expire(token string) {
	l.mu.Lock()
	_, ok := l.sessions[token]
	l.dropLocked(token)
	l.mu.Unlock()

	if ok {
		l.logger.Debug("session expired")
		l.publish(token, nil)
	}
}

func (l *Local) publish(token string, user *User) {
	l.mu.Lock()
	l.version++
	version := l.version
	targets := make([]*watcher, 0, len(l.watchers[token]))
	for _, w := range l.watchers[token] {
		targets = append(targets, w)
	}
	l.mu.Unlock()

	for _, w := range targets {
		w.deliver(version, user)
	}
}

func (l *Local) findAccount(ctx context.Context, email string) (string, account, error) {
	q := docstore.Collection(accountsCollection).Where("email", email).Take(1)
	snapshot, err := l.store.Query(docstore.Privileged(ctx), q)
	if err != nil {
		return "", account{}, fmt.Errorf("find account: %w", err)
	}
	if len(snapshot.Docs) == 0 {
		return "", account{}, docstore.ErrNotFound
	}

	doc := snapshot.Docs[0]
	var record account
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		return "", account{}, fmt.Errorf("decode account %s: %w", doc.ID(), err)
	}
	return doc.ID(), record, nil
}

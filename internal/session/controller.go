package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/ride-booking/internal/booking"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/users"
)

var ErrUnauthenticated = errors.New("not signed in")

// Directory is the user lookup the controller authenticates against.
type Directory interface {
	Create(ctx context.Context, req users.SignupRequest) (string, error)
	FindByCredentials(ctx context.Context, id, email, passcode string) (models.User, error)
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Controller tracks signed-in users. Each user has at most one booking
// session, shared by all of that user's tokens. When the last token goes
// the session is dropped, unless it still holds open bookings: then it is
// kept and the user's next login resumes it.
type Controller struct {
	users      Directory
	newSession func(models.User) *booking.Session
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*booking.Session
	tokens   map[string]issued // by jti
}

type issued struct {
	userID  string
	expires time.Time
}

func NewController(dir Directory, newSession func(models.User) *booking.Session, secret []byte, ttl time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Controller{
		users:      dir,
		newSession: newSession,
		secret:     secret,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
		sessions:   make(map[string]*booking.Session),
		tokens:     make(map[string]issued),
	}
}

func (c *Controller) Signup(ctx context.Context, req users.SignupRequest) (string, error) {
	return c.users.Create(ctx, req)
}

// Login checks credentials and issues a bearer token.
func (c *Controller) Login(ctx context.Context, id, email, passcode string) (string, models.User, error) {
	u, err := c.users.FindByCredentials(ctx, id, email, passcode)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.logger.Info("login rejected")
		}
		return "", models.User{}, err
	}
	now := c.now()
	jti := uuid.New().String()
	claims := Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Issuer:    "ride-booking",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", models.User{}, fmt.Errorf("sign token: %w", err)
	}

	c.mu.Lock()
	c.pruneLocked(now)
	if _, ok := c.sessions[u.ID]; !ok {
		c.sessions[u.ID] = c.newSession(u)
	}
	c.tokens[jti] = issued{userID: u.ID, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	c.logger.Info("user logged in", "user_id", u.ID)
	return token, u, nil
}

// Authenticate resolves a bearer token to its user's booking session.
func (c *Controller) Authenticate(token string) (*booking.Session, error) {
	claims, err := c.parse(token)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	tok, ok := c.tokens[claims.ID]
	if !ok || tok.userID != claims.Subject {
		return nil, ErrUnauthenticated
	}
	s, ok := c.sessions[tok.userID]
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s, nil
}

// Logout revokes the token.
func (c *Controller) Logout(token string) error {
	claims, err := c.parse(token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[claims.ID]
	if !ok {
		return ErrUnauthenticated
	}
	delete(c.tokens, claims.ID)
	c.releaseLocked(tok.userID)
	c.logger.Info("user logged out", "user_id", tok.userID)
	return nil
}

// pruneLocked forgets expired tokens and then releases every session
// left without one.
func (c *Controller) pruneLocked(now time.Time) {
	for jti, tok := range c.tokens {
		if !now.Before(tok.expires) {
			delete(c.tokens, jti)
		}
	}
	for uid := range c.sessions {
		c.releaseLocked(uid)
	}
}

// releaseLocked clears the draft of a session whose user holds no token.
// The session is dropped unless it still has open bookings.
func (c *Controller) releaseLocked(uid string) {
	for _, tok := range c.tokens {
		if tok.userID == uid {
			return
		}
	}
	s, ok := c.sessions[uid]
	if !ok {
		return
	}
	s.Reset()
	if s.Open() {
		return
	}
	s.Close()
	delete(c.sessions, uid)
}

// Active is the number of users with a booking session, signed in or
// kept for their open bookings.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Controller) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

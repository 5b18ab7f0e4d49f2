package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/internal/models"
)

var (
	ErrInvalidDomain      = apperr.New(apperr.Validation, "only institutional email addresses are allowed")
	ErrBlocked            = apperr.New(apperr.Validation, "this email is blocked, contact an administrator")
	ErrAccountBlocked     = apperr.New(apperr.Forbidden, "blocked user")
	ErrAlreadyExists      = apperr.New(apperr.Validation, "user already exists")
	ErrNotFound           = apperr.New(apperr.NotFound, "user not found")
	ErrForbidden          = apperr.New(apperr.Forbidden, "admin permission required")
	ErrAdminSignup        = apperr.New(apperr.Forbidden, "admin level cannot be self-assigned")
	ErrRoleUnchanged      = apperr.New(apperr.Validation, "user already has that level")
	ErrSelfRoleChange     = apperr.New(apperr.Validation, "cannot change your own level")
	ErrSelfBlock          = apperr.New(apperr.Validation, "cannot block yourself")
	ErrInvalidRole        = apperr.New(apperr.Validation, "level must be admin or customer")
	ErrEmailRequired      = apperr.New(apperr.Validation, "email is required")
	ErrMissingFields      = apperr.New(apperr.Validation, "email, name and password are required")
	ErrMissingTarget      = apperr.New(apperr.Validation, "targetUserId or targetEmail is required")
	ErrInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid email or password")
)

// TokenIssuer issues session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Service is the user directory: accounts, roles and the block list.
type Service struct {
	repo   Repository
	issuer TokenIssuer
	domain string
	now    func() time.Time
}

// NewService builds the directory. domain is the required e-mail suffix,
// e.g. "@gachon.ac.kr"; a missing "@" is added and matching is
// case-insensitive.
func NewService(r Repository, issuer TokenIssuer, domain string) *Service {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return &Service{repo: r, issuer: issuer, domain: domain, now: time.Now}
}

// RegisterInput is the direct registration payload.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     models.Role
}

// RoleTarget addresses the user whose role changes, by id or by email.
type RoleTarget struct {
	UserID string
	Email  string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) checkDomain(email string) error {
	if !strings.HasSuffix(email, s.domain) || len(email) == len(s.domain) {
		return ErrInvalidDomain
	}
	return nil
}

func (s *Service) isBlocked(ctx context.Context, email string) (bool, error) {
	b, err := s.repo.GetBlock(ctx, email)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// admission runs the checks shared by both sign-up paths and returns the
// normalized email.
func (s *Service) admission(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	if err := s.checkDomain(email); err != nil {
		return "", err
	}
	blocked, err := s.isBlocked(ctx, email)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", ErrBlocked
	}
	return email, nil
}

func (s *Service) insert(ctx context.Context, email, name, hash string, role models.Role) (*models.User, error) {
	now := s.now().UTC()
	u := &models.User{
		ID:           primitive.NewObjectID().Hex(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		if errors.Is(err, errDuplicateEmail) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

// Register creates an account from the direct registration endpoint.
// Admin accounts cannot be created this way.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Name) == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.RoleAdmin {
		return nil, ErrAdminSignup
	}
	email, err := s.admission(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, email, in.Name, hash, role)
}

// FindByEmailOrCreate is the identity-provider sign-in path: it loads or
// lazily creates the customer account for a verified email and issues a
// session token for it.
func (s *Service) FindByEmailOrCreate(ctx context.Context, email, name string) (*models.User, string, error) {
	email, err := s.admission(ctx, email)
	if err != nil {
		return nil, "", err
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		hash, err := throwawayHash()
		if err != nil {
			return nil, "", err
		}
		if strings.TrimSpace(name) == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		u, err = s.insert(ctx, email, name, hash, models.RoleCustomer)
		if errors.Is(err, ErrAlreadyExists) {
			// lost a race with a concurrent first sign-in
			u, err = s.repo.GetByEmail(ctx, email)
			if err == nil && u == nil {
				err = ErrNotFound
			}
		}
		if err != nil {
			return nil, "", err
		}
	}
	return s.withToken(u)
}

// PasswordLogin authenticates with email and password. Accounts created by
// Google sign-in never match since their hash is of an unknown secret.
func (s *Service) PasswordLogin(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	blocked, err := s.isBlocked(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if blocked {
		return nil, "", ErrAccountBlocked
	}
	return s.withToken(u)
}

func (s *Service) withToken(u *models.User) (*models.User, string, error) {
	tok, _, err := s.issuer.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// GetByID loads a user with Blocked derived from the block list.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if u.Blocked, err = s.isBlocked(ctx, u.Email); err != nil {
		return nil, err
	}
	return u, nil
}

// SetRole changes the target's role. The acting user must be an admin and
// may not change their own role in either direction.
func (s *Service) SetRole(ctx context.Context, actingID string, target RoleTarget, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	acting, err := s.repo.GetByID(ctx, actingID)
	if err != nil {
		return nil, err
	}
	if !acting.IsAdmin() {
		return nil, ErrForbidden
	}

	var u *models.User
	switch {
	case target.UserID != "":
		u, err = s.repo.GetByID(ctx, target.UserID)
	case strings.TrimSpace(target.Email) != "":
		u, err = s.repo.GetByEmail(ctx, normalizeEmail(target.Email))
	default:
		return nil, ErrMissingTarget
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if u.ID == acting.ID {
		return nil, ErrSelfRoleChange
	}
	if u.Role == role {
		return nil, ErrRoleUnchanged
	}
	updated, err := s.repo.UpdateRole(ctx, u.ID, role)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	updated.PasswordHash = ""
	if updated.Blocked, err = s.isBlocked(ctx, updated.Email); err != nil {
		return nil, err
	}
	return updated, nil
}

// Block upserts the block-list entry for email. Every account with that
// email is denied from the next request on, since Blocked is computed from
// the list.
func (s *Service) Block(ctx context.Context, actingID, email, reason string) (*models.BlockedUser, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if acting, err := s.repo.GetByID(ctx, actingID); err != nil {
		return nil, err
	} else if acting != nil && acting.Email == email {
		return nil, ErrSelfBlock
	}
	return s.repo.UpsertBlock(ctx, email, strings.TrimSpace(reason))
}

// Unblock removes the entry; unblocking an email that is not listed is a no-op.
func (s *Service) Unblock(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	_, err := s.repo.DeleteBlock(ctx, email)
	return err
}

// ListAll returns every user without password hashes.
func (s *Service) ListAll(ctx context.Context) ([]models.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.ListBlocks(ctx)
	if err != nil {
		return nil, err
	}
	banned := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		banned[b.Email] = struct{}{}
	}
	for i := range list {
		list[i].PasswordHash = ""
		_, list[i].Blocked = banned[list[i].Email]
	}
	return list, nil
}

// ListBlocked returns block-list entries, newest first.
func (s *Service) ListBlocked(ctx context.Context) ([]models.BlockedUser, error) {
	return s.repo.ListBlocks(ctx)
}

// EnsureAdmin creates the bootstrap admin, or promotes an existing account
// with that email and resets its password. The domain restriction does not
// apply here.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		if name == "" {
			name = "admin"
		}
		if u, err = s.insert(ctx, email, name, hash, models.RoleAdmin); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		return u, nil
	}
	if err := s.repo.SetPassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	if u.Role != models.RoleAdmin {
		if u, err = s.repo.UpdateRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrNotFound
		}
	}
	u.PasswordHash = ""
	return u, nil
}

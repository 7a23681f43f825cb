package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// DefaultArchitectName is shown on invites when the architect has no profile name
const DefaultArchitectName = "Arquiteto"

const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

// clientService implements the ClientService interface
type clientService struct {
	clients   repositories.ClientRepository
	profiles  repositories.ProfileRepository
	users     services.UserProvisioner
	txManager repositories.TransactionManager
	appURL    string
	logger    *slog.Logger
	now       func() time.Time
	newToken  func() string
}

// NewClientService creates a new client service
func NewClientService(
	clients repositories.ClientRepository,
	profiles repositories.ProfileRepository,
	users services.UserProvisioner,
	txManager repositories.TransactionManager,
	cfg *config.Config,
	logger *slog.Logger,
) services.ClientService {
	return &clientService{
		clients:   clients,
		profiles:  profiles,
		users:     users,
		txManager: txManager,
		appURL:    strings.TrimRight(cfg.AppURL, "/"),
		logger:    logger,
		now:       time.Now,
		newToken:  uuid.NewString,
	}
}

// CreateClient adds an active client to the architect's list
func (s *clientService) CreateClient(ctx context.Context, architectID string, req *services.CreateClientRequest) (*models.Client, error) {
	client, err := s.newClient(architectID, req, models.ClientActive)
	if err != nil {
		return nil, err
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		"id", client.ID,
		"architect_id", architectID,
	)
	return client, nil
}

// InviteClient creates a pending client with a fresh invite token
func (s *clientService) InviteClient(ctx context.Context, architectID string, req *services.CreateClientRequest) (*models.Invite, error) {
	client, err := s.newClient(architectID, req, models.ClientPending)
	if err != nil {
		return nil, err
	}
	s.issueToken(client)

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client invited",
		"id", client.ID,
		"architect_id", architectID,
	)
	return s.invite(ctx, client), nil
}

func (s *clientService) newClient(architectID string, req *services.CreateClientRequest, status models.ClientStatus) (*models.Client, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}

	client := &models.Client{
		ArchitectID: architectID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       trimmed(req.Phone),
		CPFCNPJ:     trimmed(req.CPFCNPJ),
		Address:     trimmed(req.Address),
		Notes:       trimmed(req.Notes),
		Status:      status,
	}
	if err := validateClient(client); err != nil {
		return nil, err
	}
	return client, nil
}

func validateClient(c *models.Client) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, config.MaxClientNameLength)),
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Status, validation.Required,
			validation.In(models.ClientActive, models.ClientPending, models.ClientInactive)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// trimmed drops blank optional fields
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *clientService) issueToken(client *models.Client) {
	token := s.newToken()
	sentAt := s.now()
	client.InviteToken = &token
	client.InviteSentAt = &sentAt
}

// invite builds the public invitation view, including the link to share
func (s *clientService) invite(ctx context.Context, client *models.Client) *models.Invite {
	inv := &models.Invite{
		ClientID:      client.ID,
		Name:          client.Name,
		Email:         client.Email,
		ArchitectName: s.architectName(ctx, client.ArchitectID),
	}
	if client.InviteToken != nil {
		inv.Link = s.appURL + "/invite/" + *client.InviteToken
	}
	return inv
}

func (s *clientService) architectName(ctx context.Context, architectID string) string {
	profile, err := s.profiles.GetByID(ctx, architectID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("architect profile lookup failed", "architect_id", architectID, "error", err)
		}
		return DefaultArchitectName
	}
	if label := strings.TrimSpace(profile.Label()); label != "" {
		return label
	}
	return DefaultArchitectName
}

// ListClients returns the architect's clients, newest first
func (s *clientService) ListClients(ctx context.Context, architectID string) ([]models.Client, error) {
	return s.clients.List(ctx, architectID)
}

// GetClient retrieves one of the architect's clients
func (s *clientService) GetClient(ctx context.Context, id, architectID string) (*models.Client, error) {
	return s.clients.GetByID(ctx, id, architectID)
}

// UpdateClient applies the non-nil fields of req
func (s *clientService) UpdateClient(ctx context.Context, id, architectID string, req *services.UpdateClientRequest) (*models.Client, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}

	client, err := s.clients.GetByID(ctx, id, architectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		client.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		client.Phone = trimmed(req.Phone)
	}
	if req.CPFCNPJ != nil {
		client.CPFCNPJ = trimmed(req.CPFCNPJ)
	}
	if req.Address != nil {
		client.Address = trimmed(req.Address)
	}
	if req.Notes != nil {
		client.Notes = trimmed(req.Notes)
	}
	if req.Status != nil {
		client.Status = *req.Status
	}

	if err := validateClient(client); err != nil {
		return nil, err
	}
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client updated", "id", id, "architect_id", architectID)
	return client, nil
}

// DeleteClient removes the client and, through the schema, its shares
func (s *clientService) DeleteClient(ctx context.Context, id, architectID string) error {
	if err := s.clients.Delete(ctx, id, architectID); err != nil {
		return err
	}
	s.logger.Info("client deleted", "id", id, "architect_id", architectID)
	return nil
}

// ResendInvite rotates the token so earlier links stop working
func (s *clientService) ResendInvite(ctx context.Context, id, architectID string) (*models.Invite, error) {
	client, err := s.clients.GetByID(ctx, id, architectID)
	if err != nil {
		return nil, err
	}
	if client.Status != models.ClientPending {
		return nil, fmt.Errorf("%w: client %s is not pending", domain.ErrValidation, id)
	}

	s.issueToken(client)
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("invite resent", "id", id, "architect_id", architectID)
	return s.invite(ctx, client), nil
}

// Stats counts the architect's clients by status
func (s *clientService) Stats(ctx context.Context, architectID string) (*models.ClientStats, error) {
	counts, err := s.clients.CountByStatus(ctx, architectID)
	if err != nil {
		return nil, err
	}

	stats := &models.ClientStats{
		Active:   counts[models.ClientActive],
		Pending:  counts[models.ClientPending],
		Inactive: counts[models.ClientInactive],
	}
	stats.Total = stats.Active + stats.Pending + stats.Inactive
	return stats, nil
}

// GetInvite resolves a pending invite by token
func (s *clientService) GetInvite(ctx context.Context, token string) (*models.Invite, error) {
	client, err := s.pendingByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	inv := s.invite(ctx, client)
	inv.Link = ""
	return inv, nil
}

func (s *clientService) pendingByToken(ctx context.Context, token string) (*models.Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidInvite
	}

	client, err := s.clients.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidInvite
		}
		return nil, err
	}
	if client.Status != models.ClientPending {
		return nil, domain.ErrInvalidInvite
	}
	return client, nil
}

// CompleteRegistration creates the client's auth user and activates the
// client record. The token stops working once this succeeds.
func (s *clientService) CompleteRegistration(ctx context.Context, token string, req *services.RegisterRequest) (*models.Client, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	err := validation.Errors{
		"name":     validation.Validate(name, validation.Required, validation.RuneLength(1, config.MaxClientNameLength)),
		"password": validation.Validate(req.Password, validation.Required, validation.RuneLength(minPasswordLength, maxPasswordLength)),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	client, err := s.pendingByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	userID, err := s.users.CreateUser(ctx, client.Email, req.Password, map[string]interface{}{
		"role": string(models.RoleClient),
		"name": name,
	})
	if err != nil {
		return nil, fmt.Errorf("create client user: %w", err)
	}

	registeredAt := s.now()
	client.Name = name
	client.Status = models.ClientActive
	client.InviteToken = nil
	client.RegisteredAt = &registeredAt
	client.UserID = &userID

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.clients.Update(txCtx, client); err != nil {
			return err
		}
		return s.profiles.Upsert(txCtx, &models.Profile{
			ID:   userID,
			Name: name,
			Role: models.RoleClient,
		})
	})
	if err != nil {
		// Without the auth user the invite stays usable for another attempt
		if delErr := s.users.DeleteUser(context.WithoutCancel(ctx), userID); delErr != nil {
			s.logger.Error("failed to remove auth user after activation failure",
				"client_id", client.ID,
				"user_id", userID,
				"error", delErr,
			)
		}
		return nil, fmt.Errorf("activate client: %w", err)
	}

	s.logger.Info("client registered",
		"id", client.ID,
		"architect_id", client.ArchitectID,
		"user_id", userID,
	)
	return client, nil
}

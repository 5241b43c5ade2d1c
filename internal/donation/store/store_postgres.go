package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"donation-gateway/internal/donation/models"
	"donation-gateway/pkg/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists donations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed donation store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const donationColumns = `id, user_id, type, amount, donor_info, family_members,
	status, payment_reference, payment_details, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	donation.UpdatedAt = donation.CreatedAt

	donorInfo, err := json.Marshal(donation.DonorInfo)
	if err != nil {
		return fmt.Errorf("marshal donor info: %w", err)
	}
	var familyMembers []byte
	if donation.FamilyMembers != nil {
		familyMembers, err = json.Marshal(donation.FamilyMembers)
		if err != nil {
			return fmt.Errorf("marshal family members: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO donations (id, user_id, type, amount, donor_info, family_members,
			status, payment_reference, payment_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)`,
		donation.ID, donation.UserID, donation.Type, donation.Amount,
		donorInfo, familyMembers, donation.Status, donation.PaymentReference,
		[]byte(donation.PaymentDetails), donation.CreatedAt, donation.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	return scanDonation(row)
}

func (s *PostgresStore) GetByPaymentReference(ctx context.Context, reference string) (*models.Donation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE payment_reference = $1`, reference)
	return scanDonation(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.Donation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []*models.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, donation)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*models.Donation, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE donations SET
			status = COALESCE($2, status),
			payment_reference = COALESCE(NULLIF($3, ''), payment_reference),
			payment_details = COALESCE($4, payment_details),
			updated_at = now()
		WHERE id = $1
		RETURNING `+donationColumns,
		id, (*string)(fields.Status), derefOrEmpty(fields.PaymentReference), []byte(fields.PaymentDetails))

	donation, err := scanDonation(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, err
	}
	return donation, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM donations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute locks the donation row with SELECT ... FOR UPDATE, so concurrent
// transitions on the same donation serialize and exactly one caller observes
// the pre-transition status.
func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(*models.Donation) error,
	mutate func(*models.Donation)) (*models.Donation, error) {

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1 FOR UPDATE`, id)
	donation, err := scanDonation(row)
	if err != nil {
		return nil, err
	}

	if err := validate(donation); err != nil {
		return nil, err
	}
	mutate(donation)
	donation.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE donations SET
			status = $2,
			payment_reference = NULLIF($3, ''),
			payment_details = $4,
			updated_at = $5
		WHERE id = $1`,
		donation.ID, donation.Status, donation.PaymentReference,
		[]byte(donation.PaymentDetails), donation.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("update donation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return donation, nil
}

func scanDonation(row pgx.Row) (*models.Donation, error) {
	var (
		donation         models.Donation
		donorInfo        []byte
		familyMembers    []byte
		paymentReference *string
		paymentDetails   []byte
	)
	err := row.Scan(&donation.ID, &donation.UserID, &donation.Type, &donation.Amount,
		&donorInfo, &familyMembers, &donation.Status, &paymentReference,
		&paymentDetails, &donation.CreatedAt, &donation.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}

	if err := json.Unmarshal(donorInfo, &donation.DonorInfo); err != nil {
		return nil, fmt.Errorf("unmarshal donor info: %w", err)
	}
	if len(familyMembers) > 0 {
		if err := json.Unmarshal(familyMembers, &donation.FamilyMembers); err != nil {
			return nil, fmt.Errorf("unmarshal family members: %w", err)
		}
	}
	if paymentReference != nil {
		donation.PaymentReference = *paymentReference
	}
	if len(paymentDetails) > 0 {
		donation.PaymentDetails = json.RawMessage(paymentDetails)
	}
	return &donation, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

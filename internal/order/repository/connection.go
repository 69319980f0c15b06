package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
)

// Connection statuses mirrored from the directory service
const (
	ConnectionApproved = "APPROVED"
	ConnectionRevoked  = "REVOKED"
)

// TenantConnection is a local cache row of an approved buyer-seller pairing.
// The connection directory is an external collaborator; this table is written
// only by its event consumer and read by order placement.
type TenantConnection struct {
	ID            string    `db:"id" json:"id"`
	PharmacyID    string    `db:"pharmacy_id" json:"pharmacy_id"`
	DistributorID string    `db:"distributor_id" json:"distributor_id"`
	Status        string    `db:"status" json:"status"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ConnectionRepository handles the tenant connection cache
type ConnectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert records the directory's latest view of a pairing
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *TenantConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tenant_connections (id, pharmacy_id, distributor_id, status, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (pharmacy_id, distributor_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, conn.ID, conn.PharmacyID, conn.DistributorID, conn.Status)
	return err
}

// IsApproved reports whether the pharmacy and distributor have an approved
// connection.
func (r *ConnectionRepository) IsApproved(ctx context.Context, pharmacyID, distributorID string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM tenant_connections
		WHERE pharmacy_id = $1 AND distributor_id = $2 AND status = $3
	`
	if err := r.db.GetContext(ctx, &count, query, pharmacyID, distributorID, ConnectionApproved); err != nil {
		return false, err
	}
	return count > 0, nil
}

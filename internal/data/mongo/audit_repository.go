package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fintrack/ledger-engine/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the balance audit collection in MongoDB
	AuditCollectionName = "balance_audit"
)

// AuditRepository implements the audit.Repository interface for MongoDB.
// The journal is written outside ledger transactions; it records how derived
// balances moved, it does not define them.
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one balance mutation record
func (r *AuditRepository) Append(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to append audit record",
			"account_id", record.AccountID.String(),
			"change", string(record.Change),
			"error", err)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// ListByAccount retrieves paginated audit records for an account,
// newest first
func (r *AuditRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// internal/repository/audit_mongo.go
package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"currency-conversion/internal/models"
)

const auditCollection = "conversion_audit"

// MongoAuditRepository is the document-store alternative to AuditRepository.
type MongoAuditRepository struct {
	collection *mongo.Collection
}

func NewMongoAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{collection: db.Collection(auditCollection)}
}

func (m *MongoAuditRepository) Save(ctx context.Context, record *models.ConversionAuditRecord) error {
	doc, err := auditDocument(record)
	if err != nil {
		return err
	}

	_, err = m.collection.InsertOne(ctx, doc)
	return err
}

// Migrate creates the lookup index on conversion_id.
func (m *MongoAuditRepository) Migrate(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversion_id", Value: 1}},
		Options: options.Index().SetName("conversion_id_idx"),
	})
	return err
}

func auditDocument(record *models.ConversionAuditRecord) (bson.M, error) {
	amounts := make(map[string]primitive.Decimal128, 3)
	for field, value := range map[string]string{
		"original_amount":  record.OriginalAmount.String(),
		"converted_amount": record.ConvertedAmount.String(),
		"rate":             record.Rate.String(),
	} {
		d, err := primitive.ParseDecimal128(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", field, err)
		}
		amounts[field] = d
	}

	return bson.M{
		"_id":              record.ID,
		"conversion_id":    record.ConversionID,
		"from_currency":    record.FromCurrency.String(),
		"to_currency":      record.ToCurrency.String(),
		"original_amount":  amounts["original_amount"],
		"converted_amount": amounts["converted_amount"],
		"rate":             amounts["rate"],
		"rate_source":      string(record.RateSource),
		"created_at":       record.CreatedAt,
	}, nil
}

// package benefits/firestore.go
package benefits

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"difal-service/internal/core/normalize"
	"difal-service/internal/domain"
)

const defaultCollection = "difal_benefits"

// benefitDocument is one document of the benefits collection.
type benefitDocument struct {
	CNPJ     string   `firestore:"cnpj"`
	ItemCode string   `firestore:"itemCode"`
	Kind     string   `firestore:"kind"`
	Value    *float64 `firestore:"value"`
}

// FirestoreStore reads the benefits of a company from a Firestore collection.
type FirestoreStore struct {
	db         *firestore.Client
	collection string
	logger     *zap.Logger
}

// NewFirestoreStore wraps an existing client. The caller owns the client.
func NewFirestoreStore(db *firestore.Client, collection string, logger *zap.Logger) *FirestoreStore {
	if collection == "" {
		collection = defaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreStore{db: db, collection: collection, logger: logger}
}

// NewFirestoreClient connects to a named Firestore database.
func NewFirestoreClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, &domain.ConfigurationError{Field: "benefits.firestore_project", Reason: "projeto do Firestore não informado"}
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("erro ao inicializar cliente Firestore: %w", err)
	}
	return client, nil
}

func (s *FirestoreStore) Load(ctx context.Context, companyCNPJ string) (domain.BenefitConfig, []string, error) {
	cnpj := normalize.Digits(companyCNPJ)
	if cnpj == "" {
		return domain.BenefitConfig{}, []string{"CNPJ da empresa não informado, benefícios do Firestore não consultados"}, nil
	}

	iter := s.db.Collection(s.collection).Where("cnpj", "==", cnpj).Documents(ctx)
	defer iter.Stop()

	var docs []benefitDocument
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			s.logger.Error("Erro detalhado do Firestore", zap.Error(err), zap.String("collection", s.collection))
			return nil, nil, errors.New("erro ao consultar benefícios no banco de dados")
		}
		var d benefitDocument
		if err := doc.DataTo(&d); err != nil {
			s.logger.Warn("Documento de benefício ilegível", zap.String("id", doc.Ref.ID), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}

	config, warnings := fromDocuments(docs)
	s.logger.Info("Benefícios carregados do Firestore",
		zap.String("cnpj", cnpj),
		zap.Int("documents", len(docs)),
		zap.Int("benefits", len(config)),
	)
	return config, warnings, nil
}

// fromDocuments applies the same validation as the sheet loader.
func fromDocuments(docs []benefitDocument) (domain.BenefitConfig, []string) {
	config := make(domain.BenefitConfig, len(docs))
	var warnings []string
	for _, d := range docs {
		if d.ItemCode == "" {
			warnings = append(warnings, "documento de benefício sem itemCode ignorado")
			continue
		}
		kind, err := domain.ParseBenefitKind(d.Kind)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %s: %v", d.ItemCode, err))
			continue
		}
		benefit, err := domain.NewBenefit(kind, d.Value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %s: %v", d.ItemCode, err))
			continue
		}
		if _, dup := config[d.ItemCode]; dup {
			warnings = append(warnings, fmt.Sprintf("item %s com mais de um benefício, mantido o primeiro", d.ItemCode))
			continue
		}
		config[d.ItemCode] = benefit
	}
	return config, warnings
}

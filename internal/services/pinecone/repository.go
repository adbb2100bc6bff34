// File: internal/services/pinecone/repository.go
package pinecone

import (
	"context"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

type FactService struct {
	client *ClientService
	retry  *RetryService
	config *Config
	logger Logger
}

func NewFactService(client *ClientService, retry *RetryService, config *Config, logger Logger) *FactService {
	return &FactService{
		client: client,
		retry:  retry,
		config: config,
		logger: logger,
	}
}

// QuerySimilar returns the topK stored facts nearest to the embedding.
func (f *FactService) QuerySimilar(ctx context.Context, embedding []float32, topK int) ([]Fact, error) {
	if topK <= 0 {
		topK = f.config.TopK
	}

	var facts []Fact
	err := f.retry.RetryWithTimeout(func(ctx context.Context) error {
		var err error
		facts, err = f.querySimilarOperation(ctx, embedding, topK)
		return err
	})
	return facts, err
}

func (f *FactService) querySimilarOperation(ctx context.Context, embedding []float32, topK int) ([]Fact, error) {
	f.logger.Debug("querying similar vectors", "topK", topK, "dimension", len(embedding))

	res, err := f.client.Index().QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		f.logger.Error("similarity search failed", "error", err)
		return nil, NewOperationError("search operation failed", err)
	}

	facts := make([]Fact, 0, len(res.Matches))
	for _, match := range res.Matches {
		if match == nil || match.Vector == nil {
			continue
		}
		facts = append(facts, Fact{
			ID:    match.Vector.Id,
			Score: match.Score,
			Text:  metadataText(match.Vector.Metadata),
		})
	}

	f.logger.Debug("similarity search completed", "results_count", len(facts))
	return facts, nil
}

// metadataText pulls the snippet text out of the vector metadata. The
// index stores it under "text"; older records use "content".
func metadataText(md *structpb.Struct) string {
	if md == nil {
		return ""
	}
	for _, key := range []string{"text", "content"} {
		if v, ok := md.Fields[key]; ok {
			if s := v.GetStringValue(); s != "" {
				return s
			}
		}
	}
	return ""
}

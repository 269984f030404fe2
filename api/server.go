package api

import (
	"context"

	"newsbot/orchestrator"
	"newsbot/types"

	"github.com/gin-gonic/gin"
)

// PassRunner triggers cycles and passes. Implemented by orchestrator.Runner.
type PassRunner interface {
	RunOnce(ctx context.Context) (*orchestrator.Report, error)
	RunPass(ctx context.Context, threshold *float64) (*types.PassResult, error)
	Last() *types.PassResult
	Status() orchestrator.Status
}

// ArticleReader is the read side of the article store.
type ArticleReader interface {
	Get(ctx context.Context, key string) (*types.Article, error)
	Count(ctx context.Context) (int, error)
}

// PassArchive looks up archived pass reports.
type PassArchive interface {
	LoadPassResult(ctx context.Context, runID string) (*types.PassResult, error)
}

// Dependencies are the collaborators the handlers use. Archive may be nil.
type Dependencies struct {
	Runner   PassRunner
	Articles ArticleReader
	Archive  PassArchive
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r, deps.Runner)
	RegisterDeduplicationRoutes(r, deps.Runner, deps.Archive)
	RegisterArticleRoutes(r, deps.Articles)
	RegisterRSSRoutes(r, deps.Runner)
	return r
}

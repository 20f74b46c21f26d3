package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/menubot/api/responses"
	"github.com/angelmondragon/menubot/internal/catalog"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
)

type catalogReader interface {
	Current() *catalog.Snapshot
}

type catalogReloader interface {
	Reload(ctx context.Context) (catalog.ReloadResult, error)
}

// CatalogTree returns the live snapshot with the indices used by callback tokens.
func CatalogTree(cat catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cat.Current()
		if snap == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnavailable, "catalog not loaded"))
			return
		}
		responses.WriteSuccess(w, snap.Tree())
	}
}

// CatalogReload rebuilds the catalog from the source. A failed rebuild keeps
// the previous snapshot live.
func CatalogReload(cat catalogReloader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := cat.Reload(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

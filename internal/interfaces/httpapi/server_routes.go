package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/pools", handler.ListPools)
	mux.HandleFunc("GET /v1/pools/{poolID}", handler.GetPool)
	mux.HandleFunc("GET /v1/users", handler.ListUsers)
	mux.HandleFunc("GET /v1/users/{userID}", handler.GetUser)
	mux.HandleFunc("GET /v1/audit", handler.ListAuditEntries)
	mux.HandleFunc("GET /v1/users/{userID}/audit", handler.ListUserAuditEntries)
	mux.HandleFunc("GET /v1/events", handler.StreamEvents)
	mux.HandleFunc("POST /v1/users", handler.RegisterUser)
}

func registerActorRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("POST /v1/pools", RequireActor(http.HandlerFunc(handler.CreatePool)))
	mux.Handle("DELETE /v1/pools/{poolID}", RequireActor(http.HandlerFunc(handler.DeletePool)))
	mux.Handle("PUT /v1/pools/{poolID}/start-time", RequireActor(http.HandlerFunc(handler.SetPoolStartTime)))
	mux.Handle("POST /v1/pools/{poolID}/lock", RequireActor(http.HandlerFunc(handler.LockPool)))

	mux.Handle("POST /v1/pools/{poolID}/squares/claim", RequireActor(http.HandlerFunc(handler.ClaimSquare)))
	mux.Handle("POST /v1/pools/{poolID}/squares/release", RequireActor(http.HandlerFunc(handler.ReleaseSquare)))
	mux.Handle("POST /v1/pools/{poolID}/squares/assign", RequireActor(http.HandlerFunc(handler.AssignSquare)))
	mux.Handle("POST /v1/pools/{poolID}/squares/clear", RequireActor(http.HandlerFunc(handler.ClearSquare)))
	mux.Handle("POST /v1/pools/{poolID}/squares/random", RequireActor(http.HandlerFunc(handler.RandomAssign)))

	mux.Handle("PUT /v1/pools/{poolID}/scores/{quarter}", RequireActor(http.HandlerFunc(handler.RecordScore)))
	mux.Handle("POST /v1/pools/{poolID}/scores/{quarter}/reopen", RequireActor(http.HandlerFunc(handler.ReopenScore)))

	mux.Handle("PUT /v1/users/{userID}/tokens", RequireActor(http.HandlerFunc(handler.SetUserTokens)))
}

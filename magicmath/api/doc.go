// Package api expõe o orchestrator via HTTP.
//
// Rotas:
//
//	GET  /           uso da API
//	GET  /{n}        magic math de n
//	POST /batch      {"numbers": [...]} -> {"results": [...]}
//	GET  /benchmark  tempos das duas estratégias
//	GET  /health     status do cache
//	GET  /stats      contadores do rate limit (quando configurado)
//	GET  /metrics    Prometheus
//
// Erros de entrada respondem 400 com {"error": "..."}.
package api

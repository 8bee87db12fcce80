// Package application orquestra o magic math: cache-aside (ComputeWithCache) e
// batch (ComputeBatch).
//
// Não conhece net/http. Falhas de backend do cache são absorvidas aqui; só
// domain.ErrInvalidInput volta para quem chamou.
package application

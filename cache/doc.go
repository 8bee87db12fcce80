// Package cache define o Cache Store usado pelo orquestrador de resultados e pelo
// rate limiter.
//
// Implementações:
//
//   - RedisStore: backend externo (github.com/redis/go-redis/v9), com status de conexão
//   - MemoryStore: mapa em memória com TTL, para uma instância só e testes
//
// Todas as operações são best-effort: falha de backend vira ErrUnavailable e nunca
// derruba o request. Quem chama decide se trata como miss.
package cache

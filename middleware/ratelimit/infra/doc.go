// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryWindowStore: janelas fixas em memória, com varredura periódica
//   - CacheWindowStore: janelas fixas no Cache Store externo (Redis), TTL pelo store
//   - MemoryStatsStore / RedisStatsStore / PromStatsStore: contadores de checks
//   - ChanPool: semáforo simples para limite de concorrência
package infra

// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (janela fixa, sem dependência de net/http)
//   - application: casos de uso (escolha de backend, check, headers; acquire/timeout)
//   - infra: implementações concretas (janelas em memória e no Cache Store, estatísticas, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração do identificador + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai o identificador do cliente (X-Forwarded-For, CF-Connecting-IP, 127.0.0.1)
//  2. Chama a camada application para obter o resultado (sempre conta, mesmo bloqueado)
//  3. Escreve X-RateLimit-Limit/Remaining/Reset/Backend em todo response
//  4. Se bloqueado, responde 429 com Retry-After; senão chama o próximo handler
//
// Variáveis de ambiente do binário (cmd/magicmath) controlam o comportamento,
// como RATE_LIMIT_MAX, RATE_LIMIT_WINDOW, CONCURRENCY_MAX e CONCURRENCY_TIMEOUT.
package ratelimit

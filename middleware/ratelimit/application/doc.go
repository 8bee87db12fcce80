// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Check(key) escolhe o backend (externo ou memória), aplica a janela
// fixa e retorna um Result; Service.Apply devolve também os headers X-RateLimit-*.
package application

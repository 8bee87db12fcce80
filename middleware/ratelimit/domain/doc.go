// Package domain define contratos e tipos de domínio para rate limit (janela fixa)
// e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A regra da janela (Advance/Evaluate) mora aqui para que os backends externo e em
// memória produzam exatamente o mesmo resultado.
package domain

// Package domain define os tipos do magic math: ComputeResult, algoritmo, proveniência
// e a validação de entrada.
//
// Não depende de net/http, Redis nem do engine.
package domain

package diagnosis

import (
	"fmt"
	"strings"

	"forklift-assistant/internal/llm"
)

const systemPrompt = "Você é um técnico sênior de manutenção de empilhadeiras. " +
	"Responda em português do Brasil, de forma clara e técnica."

// Request is one diagnosis question. Refinement is set when the technician
// reported that a previous answer did not solve the problem.
type Request struct {
	Equipment  string
	Problem    string
	Refinement string
}

// BuildPrompt renders the request into chat messages. Output depends only on the request.
func BuildPrompt(req Request) []llm.Message {
	var b strings.Builder
	b.WriteString("Contexto: suporte técnico de empilhadeira.\n")
	fmt.Fprintf(&b, "Equipamento: %s\n", req.Equipment)
	fmt.Fprintf(&b, "Problema relatado: %s\n", req.Problem)
	if req.Refinement != "" {
		fmt.Fprintf(&b, "\nA solução anterior não resolveu. Relato do técnico sobre o que falhou: %s\n", req.Refinement)
		b.WriteString("Proponha uma abordagem alternativa, sem repetir os passos já tentados.\n")
	}
	b.WriteString("\nConsidere apenas este problema e ignore conversas anteriores.\n")
	b.WriteString("Organize a resposta nas seções:\n")
	b.WriteString("1. Análise do problema\n")
	b.WriteString("2. Causas prováveis\n")
	b.WriteString("3. Procedimento de diagnóstico\n")
	b.WriteString("4. Passos de reparo\n")
	b.WriteString("5. Peças prováveis (com código da peça, se conhecido)\n")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

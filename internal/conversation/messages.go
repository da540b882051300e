package conversation

const (
	msgIntro = "🚧 Assistente de Suporte Técnico de Empilhadeiras 🚧\n\n" +
		"Informe o modelo da empilhadeira para começar.\n" +
		"Exemplo: Linde H25"
	msgAskProblem = "Equipamento registrado: %s\n\n" +
		"Agora descreva o problema com o máximo de detalhes: sintomas, quando ocorre e códigos de erro exibidos."
	msgEmptyEquipment  = "Por favor, envie o modelo da empilhadeira em texto."
	msgEmptyProblem    = "Por favor, descreva o problema do equipamento em texto."
	msgEmptyRefinement = "Por favor, descreva em texto o que foi tentado e o que não funcionou."
	msgSolution        = "🔧 Solução para %s:\n\n%s"
	msgFeedback        = "Esta solução ajudou a resolver o problema? Responda sim ✅ ou não ❌."
	msgUnrecognized    = "Não entendi sua resposta. Responda apenas sim ✅ ou não ❌."
	msgConfirmed       = "✅ Obrigado! A solução foi registrada no histórico de manutenção.\n\n" +
		"Para um novo atendimento, informe o modelo da empilhadeira."
	msgRefinedConfirmed = "✅ Ótimo, problema resolvido!\n\n" +
		"Para um novo atendimento, informe o modelo da empilhadeira."
	msgAskRefinement = "Entendido. Conte o que foi tentado e o que não funcionou, " +
		"assim busco uma abordagem alternativa."
	msgAskRedescribe = "Vamos tentar de novo. Descreva o problema de outra forma, " +
		"incluindo o que já foi feito desde a última sugestão."
	msgUnexpected = "Desculpe, ocorreu um erro inesperado. Vamos recomeçar o atendimento."
)

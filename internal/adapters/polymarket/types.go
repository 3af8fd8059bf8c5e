package polymarket

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de un mercado.
// volume llega como string o número según el mercado, por eso es any.
type gammaMarket struct {
	ConditionID   string     `json:"conditionId"`
	Slug          string     `json:"slug"`
	Question      string     `json:"question"`
	GameStartTime string     `json:"gameStartTime"`
	Volume        any        `json:"volume"`
	Tags          []gammaTag `json:"tags"`
}

// gammaTag es un tag de Gamma; solo usamos el label.
type gammaTag struct {
	Label string `json:"label"`
}

// --- Data API ---

// rawDataTrade es un trade de GET /trades.
type rawDataTrade struct {
	ConditionID string `json:"conditionId"`
	Asset       string `json:"asset"`
	Side        string `json:"side"`
	Price       any    `json:"price"`
	Size        any    `json:"size"`
	Timestamp   any    `json:"timestamp"`
}

// --- Positions subgraph ---

// graphQLRequest es el payload POST del subgraph.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// userBalancesResponse es la respuesta de la query userBalances.
type userBalancesResponse struct {
	Data *struct {
		UserBalances []userBalance `json:"userBalances"`
	} `json:"data"`
	Error  string         `json:"error"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// userBalance es un balance de un token de outcome.
type userBalance struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Balance string `json:"balance"`
	Asset   struct {
		ID           string `json:"id"`
		OutcomeIndex any    `json:"outcomeIndex"`
		Condition    struct {
			ID string `json:"id"`
		} `json:"condition"`
	} `json:"asset"`
}

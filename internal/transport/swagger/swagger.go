package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// ContractURL is where the router serves api/openapi.yml.
const ContractURL = "/openapi.yml"

// Handler mounts Swagger UI pointed at the claims API contract.
func Handler(contractURL string) http.Handler {
	if contractURL == "" {
		contractURL = ContractURL
	}
	return httpSwagger.Handler(
		httpSwagger.URL(contractURL),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DeepLinking(true),
	)
}

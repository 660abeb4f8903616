package arca

import "fmt"

// Ambiente selects between the homologation (testing) and production
// deployments of the ARCA webservices. Each resolves to its own endpoint pair
// and its own credential/quota scope.
type Ambiente string

const (
	AmbienteHomologacion Ambiente = "homologacion"
	AmbienteProduccion   Ambiente = "produccion"
)

// ParseAmbiente validates a configuration value.
func ParseAmbiente(s string) (Ambiente, error) {
	switch Ambiente(s) {
	case AmbienteHomologacion, AmbienteProduccion:
		return Ambiente(s), nil
	case "":
		return AmbienteHomologacion, nil
	default:
		return "", fmt.Errorf("arca: unknown ambiente %q", s)
	}
}

// WSAAEndpoint returns the authentication service endpoint.
func (a Ambiente) WSAAEndpoint() string {
	if a == AmbienteProduccion {
		return "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	}
	return "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
}

// WSFEEndpoint returns the electronic invoicing (WSFEv1) endpoint.
func (a Ambiente) WSFEEndpoint() string {
	if a == AmbienteProduccion {
		return "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
	}
	return "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
}

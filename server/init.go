package server

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/n9te9/federation-gateway/gateway"
)

const defaultGatewayConfigPath = "gateway.yaml"

// Init scaffolds a gateway.yaml in the current directory with sane
// defaults, the config Run subsequently loads via loadGatewaySetting. It
// refuses to overwrite an existing file.
func Init() error {
	if _, err := os.Stat(defaultGatewayConfigPath); err == nil {
		return fmt.Errorf("%s already exists", defaultGatewayConfigPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", defaultGatewayConfigPath, err)
	}

	settings := gateway.GatewayOption{
		Endpoint:                    "/graphql",
		ServiceName:                 "federation-gateway",
		Port:                        8080,
		TimeoutDuration:             "5s",
		EnableHangOverRequestHeader: true,
		Services: []gateway.GatewayService{
			{Name: "example", Host: "http://localhost:4001", SchemaFiles: []string{"schema/example.graphql"}},
		},
	}

	b, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal default gateway settings: %w", err)
	}

	if err := os.WriteFile(defaultGatewayConfigPath, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", defaultGatewayConfigPath, err)
	}

	fmt.Printf("wrote %s\n", defaultGatewayConfigPath)
	return nil
}

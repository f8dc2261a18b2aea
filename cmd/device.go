package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/engine"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/protocol"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/transport"
	"github.com/deploymenttheory/go-fastboot/internal/logging"
)

// openDevice dials the selected transport and returns the protocol
// client plus the reopen factory the engine uses after a device
// restart.
func openDevice(cfg *FlashConfig, opts ...protocol.Option) (*protocol.Client, engine.ReopenFunc, error) {
	ser := serial
	if ser == "" {
		ser = cfg.Serial
	}
	if ser == "" {
		return nil, nil, fmt.Errorf("no device transport specified: use --serial or the serial config key")
	}

	dial := func() (*protocol.Client, error) {
		t, err := transport.Dial(ser)
		if err != nil {
			return nil, err
		}
		return protocol.NewClient(t, opts...), nil
	}

	client, err := dial()
	if err != nil {
		return nil, nil, err
	}
	reopen := func() (engine.Transport, error) { return dial() }
	return client, reopen, nil
}

// newSession builds the flashing session from flags and config.
func newSession(cfg *FlashConfig, reopen engine.ReopenFunc) *engine.Session {
	prod := product
	if prod == "" {
		prod = cfg.Product
	}
	return engine.NewSession(
		engine.WithProduct(prod),
		engine.WithLogger(logging.New(verbose)),
		engine.WithReopen(reopen),
	)
}

package service

import (
	"fmt"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/util"
	"github.com/praxy-health/zkid-service/internal/zk"
	"github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/group"
	"github.com/praxy-health/zkid-service/pkg/service/ledger"
	"github.com/praxy-health/zkid-service/pkg/service/nullifier"
	"github.com/praxy-health/zkid-service/pkg/service/registry"
	"github.com/praxy-health/zkid-service/pkg/service/verification"
	"github.com/praxy-health/zkid-service/pkg/storage"
)

// ZKIDService represents all services and their dependencies independent of transport
type ZKIDService struct {
	Ledger       *ledger.Service
	Registry     *registry.Service
	Group        *group.Service
	Nullifier    *nullifier.Service
	Verification *verification.Service
}

// InstantiateZKIDService creates a new instance of the service which instantiates all components
// and their dependencies independent of transport.
func InstantiateZKIDService(config config.ServicesConfig) (*ZKIDService, error) {
	if err := validateServiceConfig(config); err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate zkID service, invalid config")
	}
	service, err := instantiateServices(config)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the zkID service")
	}
	return service, nil
}

func validateServiceConfig(config config.ServicesConfig) error {
	if !storage.IsStorageAvailable(storage.Type(config.StorageProvider)) {
		return fmt.Errorf("%s storage provider configured, but not available", config.StorageProvider)
	}
	if config.LedgerConfig.IsEmpty() {
		return fmt.Errorf("%s no config provided", framework.Ledger)
	}
	if config.VerificationConfig.IsEmpty() {
		return fmt.Errorf("%s no config provided", framework.Verification)
	}
	return nil
}

// instantiateServices begins all instantiates and their dependencies
func instantiateServices(config config.ServicesConfig) (*ZKIDService, error) {
	storageProvider, err := storage.NewStorage(storage.Type(config.StorageProvider), storageOptions(config)...)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not instantiate storage provider: %s", config.StorageProvider)
	}

	ledgerService, err := ledger.NewLedgerService(config.LedgerConfig)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the ledger service")
	}

	registryService, err := registry.NewRegistryService(ledgerService, storageProvider)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the registry service")
	}

	groupService, err := group.NewGroupService(config.GroupConfig, registryService)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the group service")
	}

	nullifierService, err := nullifier.NewNullifierService(storageProvider)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the nullifier service")
	}

	proofChecker, err := newProofChecker(config.VerificationConfig)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the proof checker")
	}

	verificationService, err := verification.NewVerificationService(config.VerificationConfig, groupService, nullifierService, proofChecker)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the verification service")
	}

	return &ZKIDService{
		Ledger:       ledgerService,
		Registry:     registryService,
		Group:        groupService,
		Nullifier:    nullifierService,
		Verification: verificationService,
	}, nil
}

func storageOptions(config config.ServicesConfig) []storage.Option {
	var options []storage.Option
	if config.BoltFilePath != "" {
		options = append(options, storage.Option{ID: storage.BoltFilePathOption, Option: config.BoltFilePath})
	}
	if config.RedisAddress != "" {
		options = append(options, storage.Option{ID: storage.RedisAddressOption, Option: config.RedisAddress})
	}
	if config.RedisPassword != "" {
		options = append(options, storage.Option{ID: storage.RedisPasswordOption, Option: config.RedisPassword})
	}
	return options
}

func newProofChecker(cfg config.VerificationServiceConfig) (zk.ProofChecker, error) {
	switch cfg.Mode {
	case config.VerifierModeStrict:
		return zk.NewGroth16Checker(cfg.VerificationKeyFile)
	case config.VerifierModeTrustedRoot, "":
		return zk.NewTrustedRootChecker(), nil
	default:
		return nil, fmt.Errorf("unsupported verifier mode: %s", cfg.Mode)
	}
}

// GetServices returns all services
func (s *ZKIDService) GetServices() []framework.Service {
	return []framework.Service{
		s.Ledger,
		s.Registry,
		s.Group,
		s.Nullifier,
		s.Verification,
	}
}

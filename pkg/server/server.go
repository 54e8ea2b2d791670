// Package server contains the full set of handler functions and routes
// supported by the http api
package server

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/praxy-health/zkid-service/config"
	"github.com/praxy-health/zkid-service/internal/util"
	"github.com/praxy-health/zkid-service/pkg/server/framework"
	"github.com/praxy-health/zkid-service/pkg/server/middleware"
	"github.com/praxy-health/zkid-service/pkg/server/router"
	"github.com/praxy-health/zkid-service/pkg/service"
	groupsvc "github.com/praxy-health/zkid-service/pkg/service/group"
	registrysvc "github.com/praxy-health/zkid-service/pkg/service/registry"
	verificationsvc "github.com/praxy-health/zkid-service/pkg/service/verification"
)

const (
	HealthPrefix      = "/health"
	ReadinessPrefix   = "/readiness"
	V1Prefix          = "/v1"
	CredentialsPrefix = "/credentials"
	LinkPath          = "/link"
	SyncPath          = "/sync"
	GroupPrefix       = "/group"
	ProofsPrefix      = "/proofs"
	VerificationPath  = "/verification"
)

// ZKIDServer exposes all dependencies needed to run a http server and all its services
type ZKIDServer struct {
	*config.ServerConfig
	*service.ZKIDService
	*framework.Server
}

// NewZKIDServer does two things: instantiates all services and registers their HTTP bindings
func NewZKIDServer(shutdown chan os.Signal, cfg config.ZKIDServiceConfig) (*ZKIDServer, error) {
	// creates an HTTP server from the framework, and wrap it to extend it for the zkID service
	engine := setUpEngine(cfg.Server, shutdown)
	httpServer := framework.NewServer(cfg.Server, engine, shutdown)
	zkid, err := service.InstantiateZKIDService(cfg.Services)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate zkID service")
	}

	// service-level routers
	engine.GET(HealthPrefix, router.Health)
	engine.GET(ReadinessPrefix, router.Readiness(zkid.GetServices()))

	// register all v1 routers
	v1 := engine.Group(V1Prefix)
	if err = RegistryAPI(v1, zkid.Registry); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate Registry API")
	}
	if err = GroupAPI(v1, zkid.Group); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate Group API")
	}
	if err = VerificationAPI(v1, zkid.Verification); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate Verification API")
	}

	return &ZKIDServer{
		Server:       httpServer,
		ZKIDService:  zkid,
		ServerConfig: &cfg.Server,
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware based on config
func setUpEngine(cfg config.ServerConfig, shutdown chan os.Signal) *gin.Engine {
	middlewares := gin.HandlersChain{
		gin.Recovery(),
		middleware.Errors(shutdown),
		middleware.Logger(logrus.StandardLogger()),
	}
	if cfg.JagerEnabled {
		middlewares = append(middlewares, otelgin.Middleware(config.ServiceName))
	}
	if cfg.EnableAllowAllCORS {
		middlewares = append(middlewares, middleware.CORS())
	}

	// set up engine and middleware
	engine := gin.New()
	engine.Use(middlewares...)

	switch cfg.Environment {
	case config.EnvironmentDev:
		gin.SetMode(gin.DebugMode)
	case config.EnvironmentTest:
		gin.SetMode(gin.TestMode)
	case config.EnvironmentProd:
		gin.SetMode(gin.ReleaseMode)
	}
	return engine
}

// RegistryAPI registers all HTTP routes for the Registry Service
func RegistryAPI(rg *gin.RouterGroup, service *registrysvc.Service) error {
	registryRouter, err := router.NewRegistryRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating registry router")
	}

	registryAPI := rg.Group(CredentialsPrefix)
	registryAPI.PUT(LinkPath, registryRouter.LinkCredential)
	registryAPI.PUT(SyncPath, registryRouter.SyncCredentials)
	registryAPI.DELETE("/:id", registryRouter.RevokeCredential)
	return nil
}

// GroupAPI registers all HTTP routes for the Group Service
func GroupAPI(rg *gin.RouterGroup, service *groupsvc.Service) error {
	groupRouter, err := router.NewGroupRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating group router")
	}

	rg.GET(GroupPrefix, groupRouter.GetGroup)
	return nil
}

// VerificationAPI registers all HTTP routes for the Verification Service
func VerificationAPI(rg *gin.RouterGroup, service *verificationsvc.Service) error {
	verificationRouter, err := router.NewVerificationRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating verification router")
	}

	verificationAPI := rg.Group(ProofsPrefix)
	verificationAPI.POST(VerificationPath, verificationRouter.VerifyProof)
	return nil
}

package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/users-service/config"
	userapp "github.com/oksasatya/users-service/internal/application"
	"github.com/oksasatya/users-service/internal/domain/repository"
	"github.com/oksasatya/users-service/internal/telemetry"
	"github.com/oksasatya/users-service/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	rabbitPub   *helpers.RabbitPublisher
	tel         *telemetry.Telemetry

	userRepo    repository.UserRepository
	userService *userapp.Service
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetTelemetry(t *telemetry.Telemetry)     { tel = t }
func GetTelemetry() *telemetry.Telemetry      { return tel }

func SetUserRepository(r repository.UserRepository) { userRepo = r }
func GetUserRepository() repository.UserRepository  { return userRepo }
func SetUserService(s *userapp.Service)             { userService = s }
func GetUserService() *userapp.Service              { return userService }

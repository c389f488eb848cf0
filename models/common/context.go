package common

import (
	"fmt"
	"sync"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/network"
	"github.com/APTrust/transfer-services/referential"
	"github.com/APTrust/transfer-services/util/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/op/go-logging"
)

// Context carries the config and the clients a manifest worker
// needs. Build it once per process.
type Context struct {
	Config         *Config
	Logger         *logging.Logger
	NSQClient      *network.NSQClient
	RedisClient    *network.RedisClient
	RegistryClient *network.RegistryClient
	S3Clients      map[string]*minio.Client
	Referential    *referential.Referential
	ObjectChecker  *ingest.FileObjectChecker

	ids     *ingest.BlockIDGenerator
	idsOnce sync.Once
}

func NewContext() *Context {
	config := NewConfig()
	context, err := NewContextFromConfig(config, getLogger(config))
	if err != nil {
		panic(err)
	}
	return context
}

// NewContextFromConfig builds a context around config. The referential
// and the siegfried signatures are loaded here, so a bad file stops the
// process before it takes any work.
func NewContextFromConfig(config *Config, logger *logging.Logger) (*Context, error) {
	registryClient, err := network.NewRegistryClient(
		config.RegistryURL,
		config.RegistryAPIVersion,
		config.RegistryAPIUser,
		config.RegistryAPIKey,
		logger)
	if err != nil {
		return nil, fmt.Errorf("Could not initialize Registry client: %v", err)
	}
	s3Clients, err := getS3Clients(config)
	if err != nil {
		return nil, err
	}
	context := &Context{
		Config:         config,
		Logger:         logger,
		NSQClient:      network.NewNSQClient(config.NsqURL),
		RedisClient:    network.NewRedisClient(config.RedisURL, config.RedisPassword, config.RedisDefaultDB),
		RegistryClient: registryClient,
		S3Clients:      s3Clients,
	}
	if config.ReferentialFile != "" {
		context.Referential, err = referential.Load(config.ReferentialFile)
		if err != nil {
			return nil, fmt.Errorf("Referential %s: %v", config.ReferentialFile, err)
		}
	}
	context.ObjectChecker, err = ingest.NewFileObjectChecker(config.SiegfriedSignatureFile)
	if err != nil {
		return nil, err
	}
	return context, nil
}

func getLogger(config *Config) *logging.Logger {
	logger, _ := logger.InitLogger(config.LogDir, config.LogLevel)
	return logger
}

func getS3Clients(config *Config) (map[string]*minio.Client, error) {
	s3Clients := make(map[string]*minio.Client, len(config.S3Credentials))
	useSSL := true
	if config.ConfigName == "dev" || config.ConfigName == "test" {
		useSSL = false // talking to localhost in dev and test
	}
	// Bucket lookup by path works with AWS and with local minio.
	// Note there's also credentials.NewStaticV2 for providers
	// who don't support V4.
	for provider, creds := range config.S3Credentials {
		if creds.Host == "" {
			continue
		}
		client, err := minio.New(
			creds.Host,
			&minio.Options{
				Creds:        credentials.NewStaticV4(creds.KeyID, creds.SecretKey, ""),
				Secure:       useSSL,
				Region:       "us-east-1",
				BucketLookup: minio.BucketLookupPath,
			})
		if err != nil {
			return nil, fmt.Errorf("S3 client %s: %v", provider, err)
		}
		s3Clients[provider] = client
	}
	return s3Clients, nil
}

// Collaborators returns the parser collaborators for one operation:
// the referential (when configured), the registry as unit lookup, the
// payload checker, the unit limit and the id sequence kept in Redis.
func (context *Context) Collaborators() *ingest.Collaborators {
	collab := &ingest.Collaborators{
		UnitCount: ingest.MaxUnitGuard{Max: context.Config.MaxUnitCount},
	}
	// A nil pointer in an interface field would not read as unset.
	if context.ObjectChecker != nil {
		collab.Objects = context.ObjectChecker
	}
	if context.RedisClient != nil {
		collab.IDs = context.idGenerator()
	}
	if context.RegistryClient != nil {
		collab.Units = context.RegistryClient
	}
	if context.Referential != nil {
		context.Referential.Wire(collab)
	}
	return collab
}

// idGenerator returns the process-wide generator over the Redis id
// sequence. Every operation shares it, so a reserved block is never
// dropped half used.
func (context *Context) idGenerator() *ingest.BlockIDGenerator {
	context.idsOnce.Do(func() {
		context.ids = ingest.NewBlockIDGenerator(context.RedisClient, constants.IDBlockSize)
	})
	return context.ids
}

// S3Client returns the client for the configured provider.
func (context *Context) S3Client() (*minio.Client, error) {
	client := context.S3Clients[context.Config.S3Provider]
	if client == nil {
		return nil, fmt.Errorf("No S3 client for provider %s", context.Config.S3Provider)
	}
	return client, nil
}

package common_test

import (
	"testing"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/common"
	"github.com/APTrust/transfer-services/util/testutil"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextFromConfig(t *testing.T) {
	s3Server := testutil.NewS3Server()
	defer s3Server.Close()

	dir := writeEnvFile(t, "test", map[string]string{
		"S3_LOCAL_HOST":    s3Server.Host(),
		"REFERENTIAL_FILE": testutil.PathToReferentialFixture(),
		"MAX_UNIT_COUNT":   "25",
	})
	config, err := common.LoadConfig(dir, "test")
	require.Nil(t, err)

	context, err := common.NewContextFromConfig(config, logging.MustGetLogger("context_test"))
	require.Nil(t, err)
	assert.NotNil(t, context.NSQClient)
	assert.NotNil(t, context.RedisClient)
	assert.NotNil(t, context.RegistryClient)
	require.NotNil(t, context.Referential)
	assert.Nil(t, context.ObjectChecker.Siegfried)

	client, err := context.S3Client()
	require.Nil(t, err)
	assert.NotNil(t, client)
	assert.Nil(t, context.S3Clients[constants.S3ClientAWS])

	collab := context.Collaborators()
	assert.Equal(t, context.RegistryClient, collab.Units)
	assert.Equal(t, context.Referential, collab.Referential)
	assert.NotNil(t, collab.Rules)
	require.NotNil(t, collab.UnitCount)
	assert.Error(t, collab.UnitCount.Check(26))
	assert.Nil(t, collab.UnitCount.Check(25))

	// Every operation draws from one generator over the Redis sequence.
	require.IsType(t, &ingest.BlockIDGenerator{}, collab.IDs)
	assert.Same(t, collab.IDs, context.Collaborators().IDs)
}

func TestNewContextWithoutReferential(t *testing.T) {
	dir := writeEnvFile(t, "test", nil)
	config, err := common.LoadConfig(dir, "test")
	require.Nil(t, err)
	context, err := common.NewContextFromConfig(config, logging.MustGetLogger("context_test"))
	require.Nil(t, err)
	assert.Nil(t, context.Referential)

	collab := context.Collaborators()
	assert.Nil(t, collab.Referential)
	assert.Nil(t, collab.Rules)
}

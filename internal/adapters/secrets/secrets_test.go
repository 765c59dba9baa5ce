package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "CLOUDPAYMENTS_API_SECRET", EnvKey("cloudpayments/api-secret"))
	assert.Equal(t, "CLOUDPAYMENTS_PUBLIC_ID", EnvKey("CLOUDPAYMENTS_PUBLIC_ID"))
}

func TestEnvSecretManager(t *testing.T) {
	t.Setenv("CLOUDPAYMENTS_API_SECRET", "s3cret")
	m := NewEnvSecretManager(zap.NewNop())

	secret, err := m.GetSecret(context.Background(), "cloudpayments/api-secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret.Value)

	_, err = m.GetSecret(context.Background(), "cloudpayments/missing")
	assert.Error(t, err)

	_, err = m.PutSecret(context.Background(), "cloudpayments/api-secret", "rotated", nil)
	require.NoError(t, err)
	secret, err = m.GetSecret(context.Background(), "cloudpayments/api-secret")
	require.NoError(t, err)
	assert.Equal(t, "rotated", secret.Value)
	assert.Equal(t, "s3cret", os.Getenv("CLOUDPAYMENTS_API_SECRET"))
}

func TestLocalSecretManager_PlainText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api-secret"), []byte("plain-value\n"), 0o600))

	m := NewLocalSecretManager(dir, zap.NewNop())
	secret, err := m.GetSecret(context.Background(), "api-secret")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", secret.Value)
}

func TestLocalSecretManager_PutThenGet(t *testing.T) {
	dir := t.TempDir()
	m := NewLocalSecretManager(dir, zap.NewNop())

	_, err := m.PutSecret(context.Background(), "cloudpayments/api-secret", "json-value", map[string]string{"owner": "billing"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "cloudpayments", "api-secret"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	secret, err := m.GetSecret(context.Background(), "cloudpayments/api-secret")
	require.NoError(t, err)
	assert.Equal(t, "json-value", secret.Value)
	assert.Equal(t, "billing", secret.Metadata["owner"])
	assert.NotEmpty(t, secret.CreatedAt)
}

func TestLocalSecretManager_StaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	m := NewLocalSecretManager(filepath.Join(dir, "base"), zap.NewNop())

	_, err := m.PutSecret(context.Background(), "../escape", "x", nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "base", "escape"))
	assert.NoError(t, err)
}

func TestLocalSecretManager_Missing(t *testing.T) {
	m := NewLocalSecretManager(t.TempDir(), zap.NewNop())
	_, err := m.GetSecret(context.Background(), "nope")
	assert.ErrorContains(t, err, "secret not found")
}

func TestSecretCache_Expiry(t *testing.T) {
	c := newSecretCache(true, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.set("k", &ports.Secret{Value: "v"})
	require.NotNil(t, c.get("k"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.get("k"))
}

func TestSecretCache_Disabled(t *testing.T) {
	c := newSecretCache(false, time.Minute)
	c.set("k", &ports.Secret{Value: "v"})
	assert.Nil(t, c.get("k"))
}

type fakeSecretsManager struct {
	values  map[string]string
	gets    int
	creates int
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.gets++
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(v),
		VersionId:    aws.String("v1"),
		ARN:          aws.String("arn:aws:secretsmanager:eu:1:secret:" + aws.ToString(in.SecretId)),
	}, nil
}

func (f *fakeSecretsManager) PutSecretValue(_ context.Context, in *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	if _, ok := f.values[aws.ToString(in.SecretId)]; !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	f.values[aws.ToString(in.SecretId)] = aws.ToString(in.SecretString)
	return &secretsmanager.PutSecretValueOutput{VersionId: aws.String("v2")}, nil
}

func (f *fakeSecretsManager) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.creates++
	f.values[aws.ToString(in.Name)] = aws.ToString(in.SecretString)
	return &secretsmanager.CreateSecretOutput{VersionId: aws.String("v1")}, nil
}

func TestAWSSecretsManager_CachesReads(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"cp/api-secret": "abc"}}
	a := newAWSSecretsManagerAdapter(fake, DefaultAWSSecretsManagerConfig("eu-central-1"), zap.NewNop())

	for i := 0; i < 3; i++ {
		secret, err := a.GetSecret(context.Background(), "cp/api-secret")
		require.NoError(t, err)
		assert.Equal(t, "abc", secret.Value)
	}
	assert.Equal(t, 1, fake.gets)
}

func TestAWSSecretsManager_PutInvalidatesAndCreates(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"cp/api-secret": "old"}}
	a := newAWSSecretsManagerAdapter(fake, DefaultAWSSecretsManagerConfig("eu-central-1"), zap.NewNop())

	_, err := a.GetSecret(context.Background(), "cp/api-secret")
	require.NoError(t, err)

	version, err := a.PutSecret(context.Background(), "cp/api-secret", "new", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", version)

	secret, err := a.GetSecret(context.Background(), "cp/api-secret")
	require.NoError(t, err)
	assert.Equal(t, "new", secret.Value)

	_, err = a.PutSecret(context.Background(), "cp/public-id", "pk_1", map[string]string{"env": "test"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.creates)
}

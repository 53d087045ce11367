package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	AWS_REGION = os.Getenv("AWS_REGION")

	SCRYPT_VERIFIER_API_TIMEOUT_SECONDS  = os.Getenv("SCRYPT_VERIFIER_API_TIMEOUT_SECONDS")
	SCRYPT_VERIFIER_CORS_ALLOWED_ORIGINS = os.Getenv("SCRYPT_VERIFIER_CORS_ALLOWED_ORIGINS")
	SCRYPT_VERIFIER_LOG_LEVEL            = os.Getenv("SCRYPT_VERIFIER_LOG_LEVEL")

	NPM_REGISTRY_URL             = os.Getenv("NPM_REGISTRY_URL")
	NPM_REGISTRY_TIMEOUT_SECONDS = os.Getenv("NPM_REGISTRY_TIMEOUT_SECONDS")

	BUGOUT_ACCESS_TOKEN = os.Getenv("BUGOUT_ACCESS_TOKEN")
)

const (
	DEFAULT_HOST    = "localhost"
	DEFAULT_PORT    = 8001
	DEFAULT_NETWORK = "test"

	DEFAULT_VERIFIER_TIMEOUT_SECONDS = 300
)

type SecretType string

const (
	AwsSecret       SecretType = "aws_secret"
	EnvVarSecret    SecretType = "env_var"
	PlainTextSecret SecretType = "plaintext"
	TextFileSecret  SecretType = "file"
)

type DatabaseConfig struct {
	Driver  string `json:"driver"`
	DSN     string `json:"dsn"`
	DSNType string `json:"dsn_type"`
}

type VerifierConfig struct {
	Command        []string `json:"command"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type ServerConfig struct {
	Database  DatabaseConfig `json:"database"`
	Verifier  VerifierConfig `json:"verifier"`
	JournalID string         `json:"journal_id"`
}

func BadCharsCheck(input string) error {
	badChars := []string{"%", "&", ";", ">", "<"}
	for _, badChar := range badChars {
		if strings.Contains(input, badChar) {
			return fmt.Errorf("bad char in path: %s", badChar)
		}
	}
	return nil
}

// TimeoutFromSetting converts a seconds setting into a duration, falling back
// to defaultSeconds when the setting is empty.
func TimeoutFromSetting(rawSeconds string, defaultSeconds int) (time.Duration, error) {
	if rawSeconds == "" {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	timeoutSeconds, conversionErr := strconv.Atoi(rawSeconds)
	if conversionErr != nil {
		return 0, fmt.Errorf("invalid timeout %q: %v", rawSeconds, conversionErr)
	}
	return time.Duration(timeoutSeconds) * time.Second, nil
}

func GetAwsSecret(ctx context.Context, name string) (string, error) {
	if AWS_REGION == "" {
		return "", fmt.Errorf("AWS_REGION is not specified")
	}

	awsConfig, awsConfigErr := config.LoadDefaultConfig(ctx, config.WithRegion(AWS_REGION))
	if awsConfigErr != nil {
		return "", fmt.Errorf("AWS config load error, err: %v", awsConfigErr)
	}

	svc := secretsmanager.NewFromConfig(awsConfig)

	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(name),
		VersionStage: aws.String("AWSCURRENT"),
	}

	result, getSecretErr := svc.GetSecretValue(ctx, input)
	if getSecretErr != nil {
		return "", fmt.Errorf("AWS get secret error, err: %v", getSecretErr.Error())
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("AWS secret %s has no string value", name)
	}

	return *result.SecretString, nil
}

func GetFileContent(path string) ([]byte, error) {
	_, osStatErr := os.Stat(path)
	if osStatErr != nil {
		if os.IsNotExist(osStatErr) {
			RootLogger.Error().Err(osStatErr).Str("path", path).Msg("File not found")
			return nil, osStatErr
		}
		RootLogger.Error().Err(osStatErr).Str("path", path).Msg("Error due checking file path")
		return nil, osStatErr
	}
	return os.ReadFile(path)
}

// ParseSecretInput resolves a secret depending on its input type. An empty
// type is treated as plaintext.
func ParseSecretInput(ctx context.Context, input string, inputType SecretType) (string, error) {
	switch inputType {
	case AwsSecret:
		if badCharsCheckErr := BadCharsCheck(input); badCharsCheckErr != nil {
			return "", badCharsCheckErr
		}
		return GetAwsSecret(ctx, input)
	case EnvVarSecret:
		if badCharsCheckErr := BadCharsCheck(input); badCharsCheckErr != nil {
			return "", badCharsCheckErr
		}
		secret := os.Getenv(input)
		if secret == "" {
			return "", fmt.Errorf("empty environment variable %s input", input)
		}
		return secret, nil
	case PlainTextSecret, "":
		return input, nil
	case TextFileSecret:
		if badCharsCheckErr := BadCharsCheck(input); badCharsCheckErr != nil {
			return "", badCharsCheckErr
		}
		secret, getFileErr := GetFileContent(input)
		return strings.TrimSpace(string(secret)), getFileErr
	default:
		return "", fmt.Errorf("unsupported input type provided: %s", inputType)
	}
}

// ReadConfig parses the server configuration file and resolves the database
// DSN according to its dsn_type.
func ReadConfig(ctx context.Context, rawConfigPath string) (*ServerConfig, error) {
	configPath := strings.TrimSuffix(rawConfigPath, "/")
	_, err := os.Stat(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found, err: %v", configPath, err)
		}
		return nil, fmt.Errorf("error due checking config path %s, err: %v", configPath, err)
	}

	rawBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	serverConfig := &ServerConfig{}
	if err := json.Unmarshal(rawBytes, serverConfig); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %v", configPath, err)
	}

	dsn, dsnErr := ParseSecretInput(ctx, serverConfig.Database.DSN, SecretType(serverConfig.Database.DSNType))
	if dsnErr != nil {
		return nil, dsnErr
	}
	serverConfig.Database.DSN = dsn
	serverConfig.Database.DSNType = string(PlainTextSecret)

	if serverConfig.Verifier.TimeoutSeconds <= 0 {
		serverConfig.Verifier.TimeoutSeconds = DEFAULT_VERIFIER_TIMEOUT_SECONDS
	}

	return serverConfig, nil
}

func CORSWhitelist(rawOrigins string) []string {
	var origins []string
	for _, o := range strings.Split(rawOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

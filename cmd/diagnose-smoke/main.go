// Command diagnose-smoke exercises a running backend and, when credentials
// are present, the Azure services it depends on.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/azure"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/diagnosis"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	baseURL := os.Getenv("DIAGNOSIS_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	openaiEndpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
	openaiKey := os.Getenv("AZURE_OPENAI_API_KEY")
	openaiDeployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")

	storageConnectionString := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	storageContainer := os.Getenv("AZURE_STORAGE_INTAKE_CONTAINER")
	if storageContainer == "" {
		storageContainer = "patient-intakes"
	}

	ctx := context.Background()
	failed := false

	logger.Info("=== Testing diagnosis API ===", zap.String("base_url", baseURL))
	if err := testDiagnosisAPI(ctx, baseURL, logger); err != nil {
		logger.Error("diagnosis API test failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("diagnosis API test passed")
	}

	if openaiEndpoint != "" && openaiKey != "" && openaiDeployment != "" {
		logger.Info("=== Testing Azure OpenAI client ===")
		if err := testOpenAIClient(ctx, openaiEndpoint, openaiKey, openaiDeployment, logger); err != nil {
			logger.Error("OpenAI client test failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("OpenAI client test passed")
		}
	} else {
		logger.Info("skipping Azure OpenAI test, credentials not set")
	}

	if storageConnectionString != "" {
		logger.Info("=== Testing Azure Blob Storage client ===")
		if err := testBlobStorageClient(ctx, storageConnectionString, storageContainer, logger); err != nil {
			logger.Error("blob storage client test failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("blob storage client test passed")
		}
	} else {
		logger.Info("skipping Azure Blob Storage test, AZURE_STORAGE_CONNECTION_STRING not set")
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("=== All tests completed ===")
}

func testDiagnosisAPI(ctx context.Context, baseURL string, logger *zap.Logger) error {
	client, err := diagnosis.NewClient(baseURL, 3*time.Minute, logger)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis client: %w", err)
	}

	req := intake.BuildRequest(intake.Answers{
		"name":               "Test Patient",
		"age":                "34",
		"gender":             "Female",
		"symptoms":           "Burning pain in hands and feet since childhood, reduced sweating, and clusters of small dark red skin spots.",
		"duration":           "More than 2 years",
		"family_history":     "Maternal uncle had kidney failure in his forties.",
		"medications":        "Ibuprofen as needed",
		"previous_diagnoses": "Growing pains",
	})

	result, err := client.Diagnose(ctx, req)
	if err != nil {
		return err
	}

	for i, candidate := range result.Candidates {
		logger.Info(fmt.Sprintf("candidate %d/%d", i+1, len(result.Candidates)),
			zap.String("disease", candidate.DiseaseName),
			zap.Float64("score", candidate.Score),
			zap.Strings("diagnosis", candidate.DiagnosisSteps),
		)
	}
	if len(result.Candidates) == 0 {
		return fmt.Errorf("diagnosis returned no candidates")
	}
	return nil
}

func testOpenAIClient(ctx context.Context, endpoint, apiKey, deployment string, logger *zap.Logger) error {
	client, err := azure.NewOpenAIClient(endpoint, apiKey, deployment, azure.DefaultSamplingOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	response, err := client.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant."),
		openai.UserMessage("Name one rare genetic disorder in a single sentence."),
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	logger.Info("OpenAI response received",
		zap.String("response", response),
		zap.Int("response_length", len(response)),
	)
	return nil
}

func testBlobStorageClient(ctx context.Context, connectionString, container string, logger *zap.Logger) error {
	client, err := azure.NewBlobStorageClientFromConnectionString(connectionString, container, logger)
	if err != nil {
		return fmt.Errorf("failed to create blob storage client: %w", err)
	}

	blobName := fmt.Sprintf("smoke/%d.json", time.Now().UnixNano())
	payload := []byte(`{"smoke": true}`)

	name, err := client.Upload(ctx, blobName, payload, "application/json")
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	logger.Info("blob uploaded", zap.String("blob_name", name))

	downloaded, err := client.Download(ctx, blobName)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if !bytes.Equal(payload, downloaded) {
		return fmt.Errorf("downloaded content does not match upload")
	}
	return nil
}

// Package distilbert runs an ONNX export of a HuggingFace sequence
// classification model (by default distilbert-base-uncased-finetuned-sst-2-english)
// through onnxruntime.
package distilbert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"review-insights/config"
	"review-insights/models"
	"review-insights/utils"
)

var (
	inputNames  = []string{"input_ids", "attention_mask"}
	outputNames = []string{"logits"}
)

// Classifier tokenises texts and scores them with the ONNX model.
type Classifier struct {
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	labels  []models.Sentiment
	logger  *utils.Logger
}

// New loads the tokenizer and model described by cfg. Texts longer than
// cfg.MaxLength tokens are truncated by the tokenizer.
func New(cfg config.ClassifierConfig, logger *utils.Logger) (*Classifier, error) {
	if len(cfg.Labels) < 2 {
		return nil, fmt.Errorf("distilbert: need at least two labels, got %d", len(cfg.Labels))
	}
	labels := make([]models.Sentiment, len(cfg.Labels))
	for i, l := range cfg.Labels {
		labels[i] = models.Sentiment(l)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("distilbert: load tokenizer %s: %w", cfg.TokenizerPath, err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: cfg.MaxLength,
		Strategy:  tokenizer.LongestFirst,
	})

	if !ort.IsInitialized() {
		lib := findOrtLibrary(cfg.OrtLibrary)
		if lib == "" {
			return nil, errors.New("distilbert: onnxruntime shared library not found, set ORT_LIBRARY")
		}
		logger.Info("[distilbert] Using onnxruntime library: %s", lib)
		ort.SetSharedLibraryPath(lib)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("distilbert: init onnxruntime: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("distilbert: load model %s: %w", cfg.ModelPath, err)
	}

	logger.Info("[distilbert] Model loaded from %s (max %d tokens, labels %v)",
		cfg.ModelPath, cfg.MaxLength, cfg.Labels)
	return &Classifier{tk: tk, session: session, labels: labels, logger: logger}, nil
}

// Classify returns one prediction per text: the argmax label and its softmax
// probability.
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]models.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, seqLen, err := c.encode(texts)
	if err != nil {
		return nil, err
	}

	batch := int64(len(texts))
	numLabels := int64(len(c.labels))

	inputIDs, err := ort.NewTensor(ort.NewShape(batch, int64(seqLen)), ids)
	if err != nil {
		return nil, fmt.Errorf("distilbert: input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	attention, err := ort.NewTensor(ort.NewShape(batch, int64(seqLen)), mask)
	if err != nil {
		return nil, fmt.Errorf("distilbert: attention_mask tensor: %w", err)
	}
	defer attention.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(batch, numLabels))
	if err != nil {
		return nil, fmt.Errorf("distilbert: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := c.session.Run([]ort.Value{inputIDs, attention}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("distilbert: run: %w", err)
	}

	logits := output.GetData()
	preds := make([]models.Prediction, len(texts))
	for i := range preds {
		row := logits[i*int(numLabels) : (i+1)*int(numLabels)]
		preds[i] = predict(row, c.labels)
	}
	return preds, nil
}

// encode tokenises every text and right-pads the batch to its longest
// sequence. It returns flattened [batch, seqLen] ids and attention mask.
func (c *Classifier) encode(texts []string) ([]int64, []int64, int, error) {
	encoded := make([][]int, len(texts))
	masks := make([][]int, len(texts))
	seqLen := 0
	for i, t := range texts {
		en, err := c.tk.EncodeSingle(t, true)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("distilbert: tokenize text %d: %w", i, err)
		}
		encoded[i] = en.GetIds()
		masks[i] = en.GetAttentionMask()
		seqLen = max(seqLen, len(encoded[i]))
	}
	if seqLen == 0 {
		return nil, nil, 0, errors.New("distilbert: tokenizer produced empty batch")
	}

	ids := make([]int64, len(texts)*seqLen)
	mask := make([]int64, len(texts)*seqLen)
	for i := range encoded {
		off := i * seqLen
		for j, id := range encoded[i] {
			ids[off+j] = int64(id)
			mask[off+j] = int64(masks[i][j])
		}
	}
	return ids, mask, seqLen, nil
}

// Close releases the session and the onnxruntime environment.
func (c *Classifier) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	if envErr := ort.DestroyEnvironment(); err == nil {
		err = envErr
	}
	return err
}

func predict(logits []float32, labels []models.Sentiment) models.Prediction {
	probs := softmax(logits)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.Prediction{Label: labels[best], Score: probs[best]}
}

// softmax is computed in float64 with the max subtracted for stability.
func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// findOrtLibrary locates the onnxruntime shared library.
func findOrtLibrary(configured string) string {
	if configured != "" {
		return configured
	}
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		return lib
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"/usr/local/lib/libonnxruntime.dylib",
		}
	case "windows":
		paths = []string{"onnxruntime.dll"}
	default:
		paths = []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"/usr/lib/aarch64-linux-gnu/libonnxruntime.so",
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

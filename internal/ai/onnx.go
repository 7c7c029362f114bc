package ai

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
)

var (
	ortInitMu   sync.Mutex
	ortSessions int
)

// ONNXEmbedder runs a sentence-transformer exported to ONNX in process. The
// token-level output is mean pooled over the attention mask and L2 normalized;
// models that already emit a pooled [batch, dim] output are only normalized.
type ONNXEmbedder struct {
	mu sync.Mutex

	model     string
	maxSeqLen int
	dims      int
	pooled    bool

	tokenizer *WordPiece
	session   *ort.AdvancedSession
	inputIDs  *ort.Tensor[int64]
	mask      *ort.Tensor[int64]
	typeIDs   *ort.Tensor[int64]
	output    *ort.Tensor[float32]
}

func NewONNXEmbedder(model string, cfg config.ONNXConfig) (*ONNXEmbedder, error) {
	tokenizer, err := LoadWordPiece(cfg.VocabPath, cfg.LowerCase)
	if err != nil {
		return nil, err
	}
	if err := initEnvironment(cfg.SharedLibPath); err != nil {
		return nil, err
	}

	e, err := newONNXSession(model, cfg)
	if err != nil {
		releaseEnvironment()
		return nil, err
	}
	e.tokenizer = tokenizer
	return e, nil
}

func initEnvironment(libPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()
	if ortSessions == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}
	ortSessions++
	return nil
}

func releaseEnvironment() {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()
	ortSessions--
	if ortSessions == 0 {
		_ = ort.DestroyEnvironment()
	}
}

func newONNXSession(model string, cfg config.ONNXConfig) (*ONNXEmbedder, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model has no inputs or outputs")
	}

	out := outputs[0]
	for _, o := range outputs {
		if o.Name == cfg.OutputName {
			out = o
		}
	}
	outDims := out.Dimensions
	if len(outDims) != 2 && len(outDims) != 3 {
		return nil, fmt.Errorf("onnx output %s has unsupported rank %d", out.Name, len(outDims))
	}
	dims := int(outDims[len(outDims)-1])
	if dims <= 0 {
		return nil, fmt.Errorf("onnx output %s has dynamic hidden size", out.Name)
	}

	e := &ONNXEmbedder{
		model:     model,
		maxSeqLen: cfg.MaxSeqLen,
		dims:      dims,
		pooled:    len(outDims) == 2,
	}
	seqShape := ort.NewShape(1, int64(cfg.MaxSeqLen))

	var (
		inputNames  []string
		inputValues []ort.Value
	)
	for _, in := range inputs {
		t, err := ort.NewEmptyTensor[int64](seqShape)
		if err != nil {
			e.destroy()
			return nil, fmt.Errorf("onnx new input tensor: %w", err)
		}
		switch in.Name {
		case "input_ids":
			e.inputIDs = t
		case "attention_mask":
			e.mask = t
		case "token_type_ids":
			e.typeIDs = t
		default:
			t.Destroy()
			e.destroy()
			return nil, fmt.Errorf("onnx model has unexpected input %s", in.Name)
		}
		inputNames = append(inputNames, in.Name)
		inputValues = append(inputValues, t)
	}
	if e.inputIDs == nil || e.mask == nil {
		e.destroy()
		return nil, fmt.Errorf("onnx model needs input_ids and attention_mask inputs")
	}

	outShape := ort.NewShape(1, int64(dims))
	if !e.pooled {
		outShape = ort.NewShape(1, int64(cfg.MaxSeqLen), int64(dims))
	}
	e.output, err = ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(cfg.ModelPath, inputNames, []string{out.Name},
		inputValues, []ort.Value{e.output}, nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("onnx new session: %w", err)
	}
	return e, nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, mask := e.tokenizer.Encode(text, e.maxSeqLen)

	e.mu.Lock()
	copy(e.inputIDs.GetData(), ids)
	copy(e.mask.GetData(), mask)
	if e.typeIDs != nil {
		clear(e.typeIDs.GetData())
	}
	err := e.session.Run()
	var vec []float32
	if err == nil {
		out := e.output.GetData()
		if e.pooled {
			vec = append([]float32(nil), out[:e.dims]...)
		} else {
			vec = meanPool(out, mask, e.dims)
		}
	}
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	return l2Normalize(vec), nil
}

// EmbedBatch runs the inputs one at a time through the fixed-shape session.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ONNXEmbedder) ModelName() string { return e.model }

func (e *ONNXEmbedder) Dimensions() int { return e.dims }

func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroy()
	releaseEnvironment()
	return nil
}

func (e *ONNXEmbedder) destroy() {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.mask, e.typeIDs} {
		if t != nil {
			t.Destroy()
		}
	}
	e.inputIDs, e.mask, e.typeIDs = nil, nil, nil
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
}

// meanPool averages the token vectors of hidden ([seq, dims] flattened) where mask is 1.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for pos, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[pos*dims : (pos+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor defines the interface for extracting keyframe animations from a parsed glTF document.
// Channels target node indices directly; translation, rotation and scale channels are kept,
// channels the model cannot represent (morph weights, mismatched outputs, empty inputs) are dropped.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - model.Animation: the extracted animation with its duration
	//   - error: an error wrapping ErrMalformedContainer if a channel references invalid data
	ExtractAnimation(animIndex int) (model.Animation, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []model.Animation: all extracted animations in document order
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]model.Animation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	animations := make([]model.Animation, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		animations[i] = anim
	}
	return animations, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (model.Animation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return model.Animation{}, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return model.Animation{}, malformed("animation %d out of range", animIndex)
	}
	src := doc.Animations[animIndex]

	anim := model.Animation{Name: src.Name}
	if anim.Name == "" {
		anim.Name = fmt.Sprintf("animation_%d", animIndex)
	}

	for c, ch := range src.Channels {
		channel, ok, err := e.extractChannel(src, ch)
		if err != nil {
			return model.Animation{}, fmt.Errorf("channel %d: %w", c, err)
		}
		if !ok {
			continue
		}
		anim.Channels = append(anim.Channels, channel)
		if last := channel.Times[len(channel.Times)-1]; last > anim.Duration {
			anim.Duration = last
		}
	}

	return anim, nil
}

// extractChannel converts one channel. ok is false when the channel is skipped.
func (e *gltfAnimationExtractorImpl) extractChannel(anim *gltf.Animation, ch *gltf.Channel) (model.AnimationChannel, bool, error) {
	doc := e.parser.Document()

	if ch.Target.Node == nil {
		logger.Debug("animation channel has no target node, skipping", zap.String("animation", anim.Name))
		return model.AnimationChannel{}, false, nil
	}
	node := int(*ch.Target.Node)
	if node >= len(doc.Nodes) {
		return model.AnimationChannel{}, false, malformed("target node %d out of range", node)
	}
	if ch.Sampler == nil || int(*ch.Sampler) >= len(anim.Samplers) {
		return model.AnimationChannel{}, false, malformed("channel sampler missing or out of range")
	}
	sampler := anim.Samplers[*ch.Sampler]

	var kind model.ChannelKind
	var want gltf.AccessorType
	switch ch.Target.Path {
	case gltf.TRSTranslation:
		kind, want = model.ChannelTranslations, gltf.AccessorVec3
	case gltf.TRSRotation:
		kind, want = model.ChannelRotations, gltf.AccessorVec4
	case gltf.TRSScale:
		kind, want = model.ChannelScales, gltf.AccessorVec3
	default:
		logger.Info("unsupported animation path, skipping channel",
			zap.String("animation", anim.Name), zap.Int("node", node), zap.Any("path", ch.Target.Path))
		return model.AnimationChannel{}, false, nil
	}

	if sampler.Input == nil {
		logger.Debug("animation sampler has no input, skipping channel", zap.String("animation", anim.Name), zap.Int("node", node))
		return model.AnimationChannel{}, false, nil
	}
	times, err := e.parser.ReadScalars(*sampler.Input)
	if err != nil {
		return model.AnimationChannel{}, false, fmt.Errorf("input: %w", err)
	}
	if len(times) == 0 {
		logger.Debug("animation channel has no keyframes, skipping", zap.String("animation", anim.Name), zap.Int("node", node))
		return model.AnimationChannel{}, false, nil
	}

	if sampler.Output == nil {
		return model.AnimationChannel{}, false, malformed("sampler has no output")
	}
	output, err := e.parser.Accessor(*sampler.Output)
	if err != nil {
		return model.AnimationChannel{}, false, fmt.Errorf("output: %w", err)
	}
	if output.Type != want {
		logger.Debug("animation output type does not match its path, skipping channel",
			zap.String("animation", anim.Name), zap.Int("node", node), zap.Any("path", ch.Target.Path))
		return model.AnimationChannel{}, false, nil
	}

	interpolation := interpolationFor(sampler.Interpolation)
	values := model.ChannelValues{Kind: kind}
	if kind == model.ChannelRotations {
		values.Quat, err = e.parser.ReadVec4(*sampler.Output)
		if err == nil {
			normalizeRotations(values.Quat, interpolation)
		}
	} else {
		values.Vec3, err = e.parser.ReadVec3(*sampler.Output)
	}
	if err != nil {
		return model.AnimationChannel{}, false, fmt.Errorf("output: %w", err)
	}

	expected := len(times)
	if interpolation == model.InterpolationCubicSpline {
		expected *= 3
	}
	if values.Len() != expected {
		return model.AnimationChannel{}, false, malformed("%s output has %d samples for %d keyframes", interpolation, values.Len(), len(times))
	}

	return model.AnimationChannel{
		TargetNode:    node,
		Times:         times,
		Values:        values,
		Interpolation: interpolation,
	}, true, nil
}

func interpolationFor(i gltf.Interpolation) model.Interpolation {
	switch i {
	case gltf.InterpolationStep:
		return model.InterpolationStep
	case gltf.InterpolationCubicSpline:
		return model.InterpolationCubicSpline
	default:
		return model.InterpolationLinear
	}
}

// normalizeRotations normalizes rotation samples in place. For cubic-spline channels only the value
// samples (every third element starting at 1) are normalized; the tangents are left untouched.
func normalizeRotations(quats [][4]float32, interpolation model.Interpolation) {
	for i := range quats {
		if interpolation == model.InterpolationCubicSpline && i%3 != 1 {
			continue
		}
		quats[i] = common.NormalizeQuat(quats[i])
	}
}

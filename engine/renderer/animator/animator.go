package animator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// ErrUnknownAnimation is returned when an animation index or name does not exist on the model.
var ErrUnknownAnimation = errors.New("unknown animation")

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.Mutex

	model model.Model
	skin  int

	active  int
	time    float32
	speed   float32
	looping bool
	playing bool

	pose     []model.Transform
	globals  []common.Mat4
	skinning []common.Mat4

	provider bind_group_provider.BindGroupProvider
}

// Animator defines the public interface for CPU animation playback of one Model instance.
//
// The Animator samples the active animation clip every Update, resolves the node hierarchy into
// global matrices and computes the skinning matrices of one skin (global joint matrix times inverse
// bind matrix). PrepareGPU uploads those matrices into a storage buffer for the vertex stage.
//
// An Animator is safe for concurrent use, but a single instance is normally driven by one goroutine.
type Animator interface {
	// Model returns the model being animated.
	//
	// Returns:
	//   - model.Model: the animated model
	Model() model.Model

	// Play starts the animation at index from time zero.
	//
	// Parameters:
	//   - index: the animation index into Model().Animations()
	//
	// Returns:
	//   - error: ErrUnknownAnimation if index is out of range
	Play(index int) error

	// PlayByName starts the named animation from time zero.
	//
	// Parameters:
	//   - name: the animation name
	//
	// Returns:
	//   - error: ErrUnknownAnimation if no animation has that name
	PlayByName(name string) error

	// Stop halts playback and returns every node to its bind pose.
	Stop()

	// IsPlaying reports whether an animation is advancing.
	//
	// Returns:
	//   - bool: true while playing
	IsPlaying() bool

	// ActiveAnimation returns the index of the current animation.
	//
	// Returns:
	//   - int: the animation index, or -1 when none was started
	ActiveAnimation() int

	// Time returns the playback position in seconds.
	//
	// Returns:
	//   - float32: the current time
	Time() float32

	// SetTime moves the playback position and resamples the pose.
	//
	// Parameters:
	//   - t: the new time in seconds
	SetTime(t float32)

	// Speed returns the playback speed multiplier.
	//
	// Returns:
	//   - float32: the multiplier (1 = normal speed)
	Speed() float32

	// SetSpeed sets the playback speed multiplier.
	//
	// Parameters:
	//   - speed: the multiplier (1 = normal speed, 0.5 = half speed)
	SetSpeed(speed float32)

	// Looping reports whether playback wraps at the end of the clip.
	//
	// Returns:
	//   - bool: true when looping
	Looping() bool

	// SetLooping sets whether playback wraps at the end of the clip.
	//
	// Parameters:
	//   - looping: true to wrap, false to stop at the last frame
	SetLooping(looping bool)

	// Update advances playback by dt seconds scaled by the speed, samples every channel
	// and recomputes the global and skinning matrices.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Pose returns a copy of the current local transforms, one per node.
	//
	// Returns:
	//   - []model.Transform: the local pose
	Pose() []model.Transform

	// GlobalMatrices returns a copy of the current model-space matrices, one per node.
	//
	// Returns:
	//   - []common.Mat4: the global matrices
	GlobalMatrices() []common.Mat4

	// SkinningMatrices returns a copy of the current skinning matrices, one per joint of the animated skin.
	//
	// Returns:
	//   - []common.Mat4: the skinning matrices, empty when the model has no skin
	SkinningMatrices() []common.Mat4

	// PrepareGPU creates the skinning storage buffer and its bind group on first use and rewrites
	// the buffer contents on later calls. It does nothing when the model has no skin.
	//
	// Parameters:
	//   - dev: the device that owns the buffer
	//
	// Returns:
	//   - error: error if the buffer or bind group could not be created or written
	PrepareGPU(dev renderer.Device) error

	// BindGroupProvider returns the provider holding the skinning buffer, or nil before PrepareGPU.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Release frees the skinning buffer and bind group.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator for the given model, starting in the bind pose.
//
// Parameters:
//   - m: the model to animate
//   - options: a variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the created animator
func NewAnimator(m model.Model, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		model:   m,
		active:  -1,
		speed:   1,
		looping: true,
	}
	if len(m.Skins()) == 0 {
		a.skin = -1
	}
	for _, opt := range options {
		opt(a)
	}
	if a.skin >= len(m.Skins()) {
		logger.Warn("animator skin out of range, skinning disabled",
			zap.String("model", m.Label()), zap.Int("skin", a.skin))
		a.skin = -1
	}

	a.resetPose()
	a.updateMatrices()
	return a
}

func (a *animator) Model() model.Model {
	return a.model
}

func (a *animator) Play(index int) error {
	if index < 0 || index >= len(a.model.Animations()) {
		return fmt.Errorf("animation %d: %w", index, ErrUnknownAnimation)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = index
	a.time = 0
	a.playing = true
	a.sample()
	return nil
}

func (a *animator) PlayByName(name string) error {
	idx := a.model.AnimationIndex(name)
	if idx < 0 {
		return fmt.Errorf("animation %q: %w", name, ErrUnknownAnimation)
	}
	return a.Play(idx)
}

func (a *animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = false
	a.resetPose()
	a.updateMatrices()
}

func (a *animator) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

func (a *animator) ActiveAnimation() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *animator) Time() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}

func (a *animator) SetTime(t float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = t
	a.sample()
}

func (a *animator) Speed() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = speed
}

func (a *animator) Looping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.looping
}

func (a *animator) SetLooping(looping bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.looping = looping
}

func (a *animator) Update(dt float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.playing || a.active < 0 {
		return
	}
	duration := a.model.Animations()[a.active].Duration

	a.time += dt * a.speed
	if a.looping {
		if duration > 0 {
			a.time = math32.Mod(a.time, duration)
			if a.time < 0 {
				a.time += duration
			}
		}
	} else {
		a.time = max(0, min(a.time, duration))
		if a.time >= duration {
			a.playing = false
		}
	}
	a.sample()
}

func (a *animator) Pose() []model.Transform {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Transform(nil), a.pose...)
}

func (a *animator) GlobalMatrices() []common.Mat4 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]common.Mat4(nil), a.globals...)
}

func (a *animator) SkinningMatrices() []common.Mat4 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]common.Mat4(nil), a.skinning...)
}

func (a *animator) PrepareGPU(dev renderer.Device) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.skinning) == 0 {
		return nil
	}
	data := MarshalJointMatrices(a.skinning)

	if a.provider != nil {
		return bind_group_provider.WriteBuffers(dev, []bind_group_provider.BufferWrite{
			{Provider: a.provider, Binding: JointMatricesBinding, Data: data},
		})
	}

	buf, err := dev.CreateBuffer("skinning buffer", data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("skinning buffer: %w", err)
	}
	provider := bind_group_provider.NewBindGroupProvider("skinning bind group",
		bind_group_provider.WithBuffer(JointMatricesBinding, buf),
	)
	bg, err := dev.CreateBindGroup(provider.Label(), provider.Entries())
	if err != nil {
		provider.Release()
		return fmt.Errorf("skinning bind group: %w", err)
	}
	provider.SetBindGroup(bg)
	a.provider = provider
	return nil
}

func (a *animator) BindGroupProvider() bind_group_provider.BindGroupProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.provider
}

func (a *animator) Release() {
	a.mu.Lock()
	p := a.provider
	a.provider = nil
	a.mu.Unlock()

	if p != nil {
		p.Release()
	}
}

// resetPose copies the bind pose of every node. Callers hold a.mu.
func (a *animator) resetPose() {
	nodes := a.model.Nodes()
	if cap(a.pose) < len(nodes) {
		a.pose = make([]model.Transform, len(nodes))
	}
	a.pose = a.pose[:len(nodes)]
	for i, n := range nodes {
		a.pose[i] = n.Transform
	}
}

// sample rebuilds the pose at a.time from the active animation. Callers hold a.mu.
func (a *animator) sample() {
	a.resetPose()
	if a.active >= 0 {
		anim := a.model.Animations()[a.active]
		for i := range anim.Channels {
			ch := &anim.Channels[i]
			if ch.TargetNode < 0 || ch.TargetNode >= len(a.pose) {
				continue
			}
			applyChannel(ch, a.time, &a.pose[ch.TargetNode])
		}
	}
	a.updateMatrices()
}

// updateMatrices resolves global matrices for every node, then the skinning matrices. Callers hold a.mu.
func (a *animator) updateMatrices() {
	nodes := a.model.Nodes()
	if cap(a.globals) < len(nodes) {
		a.globals = make([]common.Mat4, len(nodes))
	}
	a.globals = a.globals[:len(nodes)]

	resolved := make([]bool, len(nodes))
	var resolve func(i int) common.Mat4
	resolve = func(i int) common.Mat4 {
		if resolved[i] {
			return a.globals[i]
		}
		local := a.pose[i].Matrix()
		if p := nodes[i].Parent; p >= 0 {
			local = common.Mul4(resolve(p), local)
		}
		a.globals[i] = local
		resolved[i] = true
		return local
	}
	for i := range nodes {
		resolve(i)
	}

	if a.skin < 0 {
		a.skinning = a.skinning[:0]
		return
	}
	skin := a.model.Skins()[a.skin]
	if cap(a.skinning) < len(skin.Joints) {
		a.skinning = make([]common.Mat4, len(skin.Joints))
	}
	a.skinning = a.skinning[:len(skin.Joints)]
	for i, joint := range skin.Joints {
		a.skinning[i] = common.Mul4(a.globals[joint], skin.InverseBindMatrices[i])
	}
}

// keyframe locates the keys surrounding t. When t lies outside the keyed range, or the channel
// has a single key, clamped reports the key to hold and the other results are unused.
func keyframe(times []float32, t float32) (prev, next int, factor, span float32, clamped int) {
	n := len(times)
	if n == 1 || t <= times[0] {
		return 0, 0, 0, 0, 0
	}
	if t >= times[n-1] {
		return 0, 0, 0, 0, n - 1
	}

	next = sort.Search(n, func(i int) bool { return times[i] > t })
	prev = next - 1
	span = times[next] - times[prev]
	if span > 0 {
		factor = (t - times[prev]) / span
	}
	return prev, next, factor, span, -1
}

func hermite(t float32) (h00, h10, h01, h11 float32) {
	t2 := t * t
	t3 := t2 * t
	return 2*t3 - 3*t2 + 1, t3 - 2*t2 + t, -2*t3 + 3*t2, t3 - t2
}

func applyChannel(ch *model.AnimationChannel, t float32, out *model.Transform) {
	if len(ch.Times) == 0 {
		return
	}
	prev, next, factor, span, clamped := keyframe(ch.Times, t)
	cubic := ch.Interpolation == model.InterpolationCubicSpline

	// cubic-spline outputs are (in-tangent, value, out-tangent) triples
	valueAt := func(k int) int {
		if cubic {
			return k*3 + 1
		}
		return k
	}

	switch ch.Values.Kind {
	case model.ChannelRotations:
		vals := ch.Values.Quat
		if clamped >= 0 {
			if i := valueAt(clamped); i < len(vals) {
				out.Rotation = vals[i]
			}
			return
		}
		if valueAt(next) >= len(vals) {
			return
		}
		switch ch.Interpolation {
		case model.InterpolationStep:
			out.Rotation = vals[prev]
		case model.InterpolationCubicSpline:
			p0, m0 := vals[prev*3+1], vals[prev*3+2]
			m1, p1 := vals[next*3], vals[next*3+1]
			h00, h10, h01, h11 := hermite(factor)
			var q [4]float32
			for c := range 4 {
				q[c] = p0[c]*h00 + m0[c]*span*h10 + p1[c]*h01 + m1[c]*span*h11
			}
			out.Rotation = common.NormalizeQuat(q)
		default:
			out.Rotation = common.Slerp(vals[prev], vals[next], factor)
		}

	case model.ChannelTranslations, model.ChannelScales:
		vals := ch.Values.Vec3
		var v [3]float32
		switch {
		case clamped >= 0:
			i := valueAt(clamped)
			if i >= len(vals) {
				return
			}
			v = vals[i]
		case valueAt(next) >= len(vals):
			return
		case ch.Interpolation == model.InterpolationStep:
			v = vals[prev]
		case cubic:
			p0, m0 := vals[prev*3+1], vals[prev*3+2]
			m1, p1 := vals[next*3], vals[next*3+1]
			h00, h10, h01, h11 := hermite(factor)
			for c := range 3 {
				v[c] = p0[c]*h00 + m0[c]*span*h10 + p1[c]*h01 + m1[c]*span*h11
			}
		default:
			v = common.Lerp3(vals[prev], vals[next], factor)
		}
		if ch.Values.Kind == model.ChannelScales {
			out.Scale = v
		} else {
			out.Translation = v
		}
	}
}

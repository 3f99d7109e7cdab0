package animator

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithSkin is an option builder that selects which skin of the model receives skinning matrices.
// The first skin is used by default; -1 disables skinning.
//
// Parameters:
//   - index: the skin index into Model().Skins()
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the skin option to an animator
func WithSkin(index int) AnimatorBuilderOption {
	return func(a *animator) {
		a.skin = index
	}
}

// WithSpeed is an option builder that sets the initial playback speed multiplier.
//
// Parameters:
//   - speed: the multiplier (1 = normal speed)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.speed = speed
	}
}

// WithLooping is an option builder that sets whether playback wraps at the end of a clip.
//
// Parameters:
//   - looping: true to wrap (the default), false to stop at the last frame
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the looping option to an animator
func WithLooping(looping bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.looping = looping
	}
}

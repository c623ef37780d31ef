package engine

import (
	"math/rand"
	"time"
)

// CelebrationBursts returns the two bursts fired on one celebration tick.
// Particle count decays linearly with the remaining time; one burst comes
// from the left of the screen and one from the right.
func CelebrationBursts(remaining time.Duration, rng *rand.Rand) []Burst {
	if remaining <= 0 {
		return nil
	}
	if remaining > CelebrationDuration {
		remaining = CelebrationDuration
	}

	count := int(float64(MaxParticles) * float64(remaining) / float64(CelebrationDuration))

	burst := func(minX, maxX float64) Burst {
		return Burst{
			ParticleCount: count,
			StartVelocity: BurstVelocity,
			Spread:        BurstSpread,
			Ticks:         BurstTicks,
			ZIndex:        BurstZIndex,
			Origin: Origin{
				X: randomInRange(rng, minX, maxX),
				Y: rng.Float64() - 0.2,
			},
		}
	}

	return []Burst{burst(0.1, 0.3), burst(0.7, 0.9)}
}

func randomInRange(rng *rand.Rand, min, max float64) float64 {
	return rng.Float64()*(max-min) + min
}

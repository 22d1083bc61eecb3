package game

import (
	"math"
	"time"

	"github.com/okaras/spikearena-backend/internal"
)

// HitResult is the outcome of adjudicating one reported collision.
type HitResult struct {
	Damage     float64
	Applied    bool // false when the tip test fails or the cooldown suppresses the hit
	Suppressed bool // true when the cooldown swallowed the hit entirely
}

// ResolveDamage adjudicates a player-vs-spike collision from raw geometry.
// Spikes are tip-only hazards: damage scales with how head-on the hit is,
// and a graze along the shaft deals nothing.
//
//  1. collisionFactor = |dot(unit(player - collisionPoint), unit(spikeDir))|
//  2. factor <= TipThreshold  -> no damage (physics bounce is the client's
//     concern)
//  3. otherwise damage = BaseDamage * healthMultiplier * angleMultiplier,
//     where low health amplifies damage up to 1.5x and the angle term
//     rescales (TipThreshold, 1] onto (0, 1].
//
// An exact position overlap yields a zero-length collision vector, which
// normalizes to {0,0} and therefore factor 0: no damage, no crash.
func ResolveDamage(playerPos, collisionPoint internal.Vec, spikeAngle, currentHealth float64) float64 {
	spikeDir := internal.Vec{X: math.Cos(spikeAngle), Y: math.Sin(spikeAngle)}

	collisionVec := internal.Vec{
		X: playerPos.X - collisionPoint.X,
		Y: playerPos.Y - collisionPoint.Y,
	}
	normalized := normalize(collisionVec)

	dot := normalized.X*spikeDir.X + normalized.Y*spikeDir.Y
	collisionFactor := math.Abs(dot)

	if collisionFactor <= internal.TipThreshold {
		return 0
	}

	healthFraction := currentHealth / internal.InitialHealth
	healthMultiplier := 1 + (1-healthFraction)*0.5
	angleMultiplier := (collisionFactor - internal.TipThreshold) * (1 / (1 - internal.TipThreshold))

	return internal.BaseDamage * healthMultiplier * angleMultiplier
}

// GateHit applies the per-player hit cooldown to a resolved damage value.
// Hits inside the cooldown window are suppressed entirely; a hit outside
// it stamps the last-hit time unconditionally, even if the computed damage
// is ~0, so sustained contact cannot re-trigger every tick.
func GateHit(damage float64, lastHit, now time.Time) (HitResult, time.Time) {
	if damage <= 0 {
		// Tip test failed: no state change, cooldown untouched.
		return HitResult{}, lastHit
	}
	if now.Sub(lastHit) <= internal.HitCooldown {
		return HitResult{Suppressed: true}, lastHit
	}
	return HitResult{Damage: damage, Applied: true}, now
}

func normalize(v internal.Vec) internal.Vec {
	mag := math.Hypot(v.X, v.Y)
	if mag == 0 {
		return internal.Vec{}
	}
	return internal.Vec{X: v.X / mag, Y: v.Y / mag}
}

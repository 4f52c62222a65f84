package assemble

import "math"

const (
	ccsPrefactor   = 18509.8632163405
	nitrogenMass   = 28.013
	driftGasKelvin = 305.0
)

// CCS converts an inverse reduced mobility (Vs/cm^2) to a collisional cross
// section in square angstrom using the Mason-Schamp equation for N2 at 305 K.
func CCS(oneOverK0, mz float64, charge int) float64 {
	if charge <= 0 || mz <= 0 {
		return 0
	}
	z := float64(charge)
	mass := mz * z
	reduced := mass * nitrogenMass / (mass + nitrogenMass)
	return ccsPrefactor * z / math.Sqrt(reduced*driftGasKelvin) * oneOverK0
}

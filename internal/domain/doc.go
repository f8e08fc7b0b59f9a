// Package domain models ASAR wave-mode (WV) acquisitions and the Level-2P
// sea state products derived from them.
//
// # Data Source
//
// Level-1B/1C input products are cross-spectra datasets computed from ASAR
// wave-mode imagettes acquired by Envisat. Each product holds a trajectory of
// acquisitions ("time" dimension) with per-acquisition geometry (longitude,
// latitude, incidence), backscatter statistics (sigma0, normalized variance)
// and orthogonal CWAVE decompositions of the image cross-spectrum
// ("k_gp" x "phi_hf" dimensions, 20 parameters per acquisition).
//
// # Product Naming
//
// Input basenames follow the SAFE convention, underscore-delimited:
//
//	ASA_WVI_XSP__1SVV_<start>_<stop>_<cycle>_<pass>_<id>.nc
//	e.g. ASA_WVI_XSP__1SVV_20081202T052355_20081202T052413_074_00392_B01.nc
//
// where <start>/<stop> are compact UTC timestamps, <cycle> is the 3-digit
// orbital cycle, <pass> the 5-digit relative pass number, and <id> the 3-char
// processing ID of the producing chain. Level-2P outputs keep the name but
// swap the XSP family token for WAV and the processing ID for the one under
// which this processor ran. Outputs are laid out under <year>/<day-of-year>/
// directories keyed on the acquisition start date.
//
// # Land Flag
//
// The "land_flag" variable marks acquisitions over land. Acquisitions on land
// carry no usable ocean signal; a product whose acquisitions are all on land
// is built from a blanked reference template instead of running retrieval.
// See [IsLandOnly] and [BuildLandProduct].
//
// # Quality Flags
//
// Model confidence variables (distance to the training manifold) map to
// 3-level quality flags:
//
//	confidence <  t1        -> 1 (good)
//	t1 <= confidence < t2   -> 2 (acceptable)
//	confidence >= t2        -> 3 (poor)
//	NaN / unknown           -> 0 (not assessed)
//
// Thresholds t1/t2 come from the per-product configuration. See
// [AddQualityFlags].
//
// # Output Conventions
//
// Level-2P products follow CF-1.11 and ACDD-1.3: standardized lon/lat
// coordinate names and attributes, per-variable units and standard names from
// the product configuration, and the ESA CCI Sea State global attribute set
// assembled by [GlobalAttributes]. Key retrieved variables are significant
// wave height (swh), windsea significant wave height (windwave_swh) and mean
// wave period (Tm0).
package domain

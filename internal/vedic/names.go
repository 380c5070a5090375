package vedic

// signNames are the 12 rashis from 0° sidereal longitude.
var signNames = [12]string{
	"Mesha (Aries)",
	"Vrishabha (Taurus)",
	"Mithuna (Gemini)",
	"Karka (Cancer)",
	"Simha (Leo)",
	"Kanya (Virgo)",
	"Tula (Libra)",
	"Vrishchika (Scorpio)",
	"Dhanu (Sagittarius)",
	"Makara (Capricorn)",
	"Kumbha (Aquarius)",
	"Meena (Pisces)",
}

// nakshatraNames are the 27 lunar mansions from 0° sidereal longitude.
var nakshatraNames = [27]string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashirsha", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni", "Uttara Phalguni",
	"Hasta", "Chitra", "Swati", "Vishakha", "Anuradha", "Jyeshtha",
	"Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana", "Dhanishta", "Shatabhisha",
	"Purva Bhadrapada", "Uttara Bhadrapada", "Revati",
}

// SignName returns the rashi name for index i in [0, 11].
func SignName(i int) string { return signNames[clamp(i, 0, len(signNames)-1)] }

// NakshatraName returns the mansion name for index i in [0, 26].
func NakshatraName(i int) string { return nakshatraNames[clamp(i, 0, len(nakshatraNames)-1)] }

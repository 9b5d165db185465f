package lang

// Script-based detection. Hebrew has a disjoint block and wins outright.
// The Arabic block is shared by Persian, Arabic and Urdu; a handful of
// letters unique to one of them disambiguates, and marker-less text falls
// back to Persian, the likeliest of the three here. Mixed-script input can
// misclassify — that only affects prompt language and display direction.

// Letters that exist in Urdu but not in Persian or Arabic.
var urduMarkers = map[rune]bool{
	'ٹ': true, // ٹ
	'ڈ': true, // ڈ
	'ڑ': true, // ڑ
	'ں': true, // ں
	'ھ': true, // ھ
	'ے': true, // ے
}

// Letters Persian added to the Arabic script (also used by Urdu, which is
// why Urdu markers are checked first).
var persianMarkers = map[rune]bool{
	'پ': true, // پ
	'چ': true, // چ
	'ژ': true, // ژ
	'گ': true, // گ
}

// Characters used in Arabic but not in Persian or Urdu orthography.
var arabicMarkers = map[rune]bool{
	'ة': true, // ة
	'ى': true, // ى
	'ً': true, // tanwin fath
	'ٌ': true, // tanwin damm
	'ٍ': true, // tanwin kasr
}

func inArabicBlock(r rune) bool {
	return (r >= 0x0600 && r <= 0x06FF) || (r >= 0x0750 && r <= 0x077F)
}

func inHebrewBlock(r rune) bool {
	return r >= 0x0590 && r <= 0x05FF
}

// Detect classifies text into a supported language. Unclassified text
// defaults to English.
func Detect(text string) Code {
	sawArabic := false
	sawUrdu := false
	sawPersian := false
	sawArabicOnly := false

	for _, r := range text {
		if inHebrewBlock(r) {
			return Hebrew
		}
		if !inArabicBlock(r) {
			continue
		}
		sawArabic = true
		switch {
		case urduMarkers[r]:
			sawUrdu = true
		case persianMarkers[r]:
			sawPersian = true
		case arabicMarkers[r]:
			sawArabicOnly = true
		}
	}

	if !sawArabic {
		return English
	}
	switch {
	case sawUrdu:
		return Urdu
	case sawPersian:
		return Persian
	case sawArabicOnly:
		return Arabic
	}
	// Shared script, no marker: Persian is the more probable here.
	return Persian
}

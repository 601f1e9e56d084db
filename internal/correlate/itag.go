package correlate

// itagHeights maps a media format tag to its video height. Audio-only tags
// map to 0.
var itagHeights = map[string]int{
	"5": 240, "6": 270, "13": 270, "17": 144, "18": 360, "22": 720,
	"34": 360, "35": 480, "36": 240, "37": 1080, "38": 3072,
	"43": 360, "44": 480, "45": 720, "46": 1080,
	"82": 360, "83": 480, "84": 720, "85": 1080,
	"92": 240, "93": 360, "94": 480, "95": 720, "96": 1080,
	"100": 360, "101": 480, "102": 720,
	"132": 240, "133": 240, "134": 360, "135": 480, "136": 720, "137": 1080, "138": 2160,
	"139": 0, "140": 0, "141": 0,
	"151": 72, "160": 144,
	"167": 360, "168": 480, "169": 720, "170": 1080,
	"171": 0, "172": 0,
	"218": 480, "219": 144,
	"242": 240, "243": 360, "244": 480, "245": 480, "246": 480, "247": 720, "248": 1080,
	"264": 1440, "266": 2160, "271": 1440, "272": 2160,
	"298": 720, "299": 1080,
	"302": 2160, "303": 1080, "308": 1440, "313": 2160, "315": 2160,
}

// Resolution returns the video height for itag, or 0 when unknown.
func Resolution(itag string) int {
	return itagHeights[itag]
}

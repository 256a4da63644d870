package alternatives

import "regexp"

// DefaultDistribution is assumed when a flagged image carries no name to
// detect from.
const DefaultDistribution = "amazon_linux_2023"

// distPattern maps a name pattern to a distribution key
type distPattern struct {
	re   *regexp.Regexp
	dist string
}

// detectionPatterns is ordered most specific first so a generic predecessor
// pattern never shadows a newer release (al2023 would otherwise match the
// amazon_linux_2 pattern too).
var detectionPatterns = []distPattern{
	{regexp.MustCompile(`(?i)al2023|amazon.?linux.?2023`), "amazon_linux_2023"},
	{regexp.MustCompile(`(?i)amzn2|amazon.?linux.?2`), "amazon_linux_2"},
	{regexp.MustCompile(`(?i)ubuntu.?24\.04|noble`), "ubuntu_24_04"},
	{regexp.MustCompile(`(?i)ubuntu.?22\.04|jammy`), "ubuntu_22_04"},
	{regexp.MustCompile(`(?i)ubuntu.?20\.04|focal`), "ubuntu_20_04"},
	{regexp.MustCompile(`(?i)rhel.?9`), "rhel_9"},
	{regexp.MustCompile(`(?i)rhel.?8`), "rhel_8"},
	{regexp.MustCompile(`(?i)debian.?12|bookworm`), "debian_12"},
	{regexp.MustCompile(`(?i)debian.?11|bullseye`), "debian_11"},
	{regexp.MustCompile(`(?i)windows.?server.?2022|windows.?2022`), "windows_2022"},
	{regexp.MustCompile(`(?i)windows.?server.?2019|windows.?2019`), "windows_2019"},
	{regexp.MustCompile(`(?i)sles|suse`), "sles"},
}

// DetectDistribution maps an image name to a distribution key. Returns false
// when no pattern matches; that is a normal outcome, not an error.
func DetectDistribution(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, p := range detectionPatterns {
		if p.re.MatchString(name) {
			return p.dist, true
		}
	}
	return "", false
}

package autoaccept

// Profile is a named preset that pre-seeds an FSPolicy/CommandPolicy
// pair, sparing callers from hand-enumerating deny-lists from scratch.
type Profile string

const (
	// ProfileUnrestricted denies nothing beyond the hardcoded git patterns.
	ProfileUnrestricted Profile = "unrestricted"

	// ProfileStandard blocks common high-risk system paths and commands.
	ProfileStandard Profile = "standard"

	// ProfileRestricted additionally confines file access to the working
	// directory passed to Policies, when one is given.
	ProfileRestricted Profile = "restricted"

	// ProfileParanoid is Restricted plus read-only /usr, /bin and /sbin
	// and a wider command deny-set.
	ProfileParanoid Profile = "paranoid"
)

var standardDeniedPaths = []string{"/etc", "/boot", "/sys", "/proc", "/root/.ssh"}
var standardDeniedCommands = []string{"rm -rf /", "mkfs", ":(){:|:&};:", "dd if=/dev/zero"}
var paranoidDeniedCommands = append(append([]string{}, standardDeniedCommands...),
	"curl", "wget", "chmod 777", "sudo")

// Policies returns the FSPolicy/CommandPolicy pair a profile pre-seeds.
// Allowed defaults to the caller's working directory when non-empty;
// pass it through workdir so Restricted/Paranoid can scope file access.
func (p Profile) Policies(workdir string) (FSPolicy, CommandPolicy) {
	switch p {
	case ProfileStandard:
		return FSPolicy{Denied: standardDeniedPaths},
			CommandPolicy{Denied: standardDeniedCommands}
	case ProfileRestricted:
		fs := FSPolicy{Denied: standardDeniedPaths}
		if workdir != "" {
			fs.Allowed = []string{workdir}
		}
		return fs, CommandPolicy{Denied: standardDeniedCommands}
	case ProfileParanoid:
		fs := FSPolicy{Denied: standardDeniedPaths, Readonly: []string{"/usr", "/bin", "/sbin"}}
		if workdir != "" {
			fs.Allowed = []string{workdir}
		}
		return fs, CommandPolicy{Denied: paranoidDeniedCommands}
	default: // ProfileUnrestricted and anything unrecognized
		return FSPolicy{}, CommandPolicy{}
	}
}

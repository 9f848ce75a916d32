package workflow

import "strings"

// Background holds the stages that provide embedded background events. Which
// fields are set depends on Mode.
type Background struct {
	Mode BackgroundMode

	// FreshBackground.
	Transport *Stage
	Upload    *Stage

	// CachedBackground.
	Header *Stage
	Kine   *Stage
	hits   map[Detector]*Stage
}

// Provider is the stage that makes the background header, geometry and GRP
// available, or nil without embedding.
func (b *Background) Provider() *Stage {
	switch b.Mode {
	case FreshBackground:
		return b.Transport
	case CachedBackground:
		return b.Header
	default:
		return nil
	}
}

// HitDownload is the stage fetching d's cached hits, or nil when no extra
// dependency is needed.
func (b *Background) HitDownload(d Detector) *Stage {
	return b.hits[d]
}

// KineDownload is the stage fetching the cached kinematics, or nil.
func (b *Background) KineDownload() *Stage {
	return b.Kine
}

func (b *Background) embedding() bool { return b.Mode != NoEmbedding }

// buildBackground creates the background stages for p's embedding mode.
func buildBackground(c *Context, p Parameters) (*Background, error) {
	b := &Background{Mode: p.BackgroundMode(), hits: make(map[Detector]*Stage)}
	switch b.Mode {
	case FreshBackground:
		return b, b.buildFresh(c, p)
	case CachedBackground:
		return b, b.buildCached(c, p)
	default:
		return b, nil
	}
}

func (b *Background) buildFresh(c *Context, p Parameters) error {
	b.Transport = c.NewStage("bkgsim", StageOpts{Labels: []string{LabelGeant}, CPU: 8})
	b.Transport.SetScript(NewScript(
		Cmd("o2-sim", "-e", p.Engine).
			Int("-j", p.Workers).
			Int("-n", p.BackgroundEvents).
			Arg("-g", p.BackgroundGenerator).
			Fields(p.Modules).
			Arg("-o", "bkg", "--configFile", p.BackgroundIni),
	))
	if err := c.Add(b.Transport); err != nil {
		return err
	}

	if p.UploadBkgTo == "" {
		return nil
	}
	b.Upload = c.NewStage("bkgupload", StageOpts{Needs: []string{b.Transport.Name}})
	b.Upload.SetScript(NewScript(
		Cmd("alien.py", "mkdir", p.UploadBkgTo),
		Cmd("alien.py", "cp", "-f", "bkg*", p.UploadBkgTo),
	))
	return c.Add(b.Upload)
}

func (b *Background) buildCached(c *Context, p Parameters) error {
	src := func(file string) string { return cachePath(p.UseBkgFrom, file) }

	b.Header = c.NewStage("bkgdownloadheader", StageOpts{Labels: []string{LabelBkgCache}})
	b.Header.SetScript(NewScript(
		Cmd("alien.py", "cp", src("bkg_MCHeader.root"), "."),
		Cmd("alien.py", "cp", src("bkg_geometry.root"), "."),
		Cmd("alien.py", "cp", src("bkg_grp.root"), "."),
	))
	if err := c.Add(b.Header); err != nil {
		return err
	}

	// One independent download per detector so digitization can start as
	// soon as its own hits arrive.
	for _, d := range TrackedDetectors {
		s := c.NewStage(string(d)+"hitdownload", StageOpts{Labels: []string{LabelBkgCache}})
		s.SetScript(NewScript(Cmd("alien.py", "cp", src(d.hitsFile()), ".")))
		if err := c.Add(s); err != nil {
			return err
		}
		b.hits[d] = s
	}

	b.Kine = c.NewStage("bkgkinedownload", StageOpts{Labels: []string{LabelBkgCache}})
	b.Kine.SetScript(NewScript(Cmd("alien.py", "cp", src("bkg_Kine.root"), ".")))
	return c.Add(b.Kine)
}

// cachePath appends file to a remote cache directory.
func cachePath(dir, file string) string {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir + file
}

// backgroundAdvisories reports cache options that the selected mode ignores.
func backgroundAdvisories(p Parameters) []Advisory {
	var notes []Advisory
	switch p.BackgroundMode() {
	case NoEmbedding:
		if p.UseBkgFrom != "" || p.UploadBkgTo != "" {
			notes = append(notes, warn("background cache options are ignored without embedding"))
		}
	case CachedBackground:
		if p.UploadBkgTo != "" {
			notes = append(notes, warn("upload to %s skipped: background is taken from the cache", p.UploadBkgTo))
		}
	}
	return notes
}

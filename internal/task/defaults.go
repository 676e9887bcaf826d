package task

// Defaults are the service-level output defaults applied to a decoded
// request before validation.
type Defaults struct {
	ExistingOutput string
	Compress       bool
	Version        string
}

// ApplyDefaults fills the output fields a request left unset. Fields
// the request did set are never overridden.
func ApplyDefaults(p Parameters, d Defaults) {
	o := p.OutputOpts()
	if o.ExistingOutput == "" {
		o.ExistingOutput = d.ExistingOutput
	}
	if o.Compress == nil {
		c := d.Compress
		o.Compress = &c
	}
	if o.Version == "" {
		o.Version = d.Version
	}
}

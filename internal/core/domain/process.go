package domain

type Process string

const (
	ProcessCompanyIncorporation Process = "Company Incorporation"
	ProcessUnknown              Process = "Unknown"
)

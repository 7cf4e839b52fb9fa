package enum

type SenderProvider string

const (
	ProviderGoogle    SenderProvider = "google"
	ProviderGmail     SenderProvider = "gmail"
	ProviderMicrosoft SenderProvider = "microsoft"
	ProviderOutlook   SenderProvider = "outlook"
	ProviderSMTP      SenderProvider = "smtp"
)

func (t SenderProvider) String() string {
	return string(t)
}

type SenderReseller string

const (
	ResellerCheapInboxes SenderReseller = "cheapinboxes"
	ResellerZapmail      SenderReseller = "zapmail"
	ResellerMailr        SenderReseller = "mailr"
	ResellerScaledMail   SenderReseller = "scaledmail"
)

func (t SenderReseller) String() string {
	return string(t)
}

package models

// WalletState holds what the view knows about the connected wallet.
type WalletState struct {
	Accounts []string `json:"accounts"`
	Balance  string   `json:"balance"`  // ether, already scaled from wei
	ChainID  string   `json:"chain_id"` // hex, as returned by the provider
}

// Connected reports whether at least one account is authorized.
func (w WalletState) Connected() bool {
	return len(w.Accounts) > 0
}

// ActiveAccount returns the first authorized account, or "".
func (w WalletState) ActiveAccount() string {
	if len(w.Accounts) == 0 {
		return ""
	}
	return w.Accounts[0]
}

// ViewState is the complete record rendered by a connection view.
type ViewState struct {
	SessionID        string      `json:"session_id"`
	HasProvider      *bool       `json:"has_provider"` // nil until detection finishes
	ClientVersion    string      `json:"client_version,omitempty"`
	WalletIdentified bool        `json:"wallet_identified"`
	Wallet           WalletState `json:"wallet"`
	IsConnecting     bool        `json:"is_connecting"`
	Error            bool        `json:"error"`
	ErrorMessage     string      `json:"error_message,omitempty"`
}

// ProviderFound reports whether detection finished and found a provider.
func (s ViewState) ProviderFound() bool {
	return s.HasProvider != nil && *s.HasProvider
}

// CanConnect reports whether the connect action is offered.
func (s ViewState) CanConnect() bool {
	return s.ProviderFound() && s.WalletIdentified && !s.Wallet.Connected() && !s.IsConnecting
}

// Clone returns a copy that shares no slices or pointers with s.
func (s ViewState) Clone() ViewState {
	cp := s
	if s.HasProvider != nil {
		v := *s.HasProvider
		cp.HasProvider = &v
	}
	if s.Wallet.Accounts != nil {
		cp.Wallet.Accounts = append([]string(nil), s.Wallet.Accounts...)
	}
	return cp
}

// ProbeReport holds the result of a one-shot provider probe.
type ProbeReport struct {
	ProviderURL      string   `json:"provider_url"`
	Found            bool     `json:"found"`
	ClientVersion    string   `json:"client_version,omitempty"`
	WalletIdentified bool     `json:"wallet_identified"`
	ChainID          string   `json:"chain_id,omitempty"`
	NumericChainID   string   `json:"numeric_chain_id,omitempty"`
	Accounts         []string `json:"accounts,omitempty"`
	Balance          string   `json:"balance,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

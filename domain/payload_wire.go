package domain

// RLP has no native concept of "optional field in the middle of a
// struct", so NETWORK_PARAMS_SET, TOKEN_CREATE and TOKEN_UPDATE (the
// only variants with optional fields, §3) get a hand-rolled wire
// shape: every optional field is paired with a presence bool.

type rlpNetworkParamsSet struct {
	HasBlockReward   bool
	BlockReward      []byte
	HasPoolAddress   bool
	PoolAddress      Address
	HasTargetTimeMs  bool
	TargetTimeMs     uint64
	HasHalfLife      bool
	HalfLifeBlocks   uint64
	HasMinDifficulty bool
	MinDifficulty    []byte
	HasMinBaseFee    bool
	MinBaseFee       []byte
	HasMinByteFee    bool
	MinByteFee       []byte
}

func encodeNetworkParamsSet(d *PayloadNetworkParamsSetData) rlpNetworkParamsSet {
	var w rlpNetworkParamsSet
	if d.BlockReward != nil {
		w.HasBlockReward = true
		w.BlockReward = d.BlockReward.Bytes()
	}
	if d.BlockRewardPoolAddress != nil {
		w.HasPoolAddress = true
		w.PoolAddress = *d.BlockRewardPoolAddress
	}
	if d.TargetMiningTimeMs != nil {
		w.HasTargetTimeMs = true
		w.TargetTimeMs = *d.TargetMiningTimeMs
	}
	if d.AsertHalfLifeBlocks != nil {
		w.HasHalfLife = true
		w.HalfLifeBlocks = *d.AsertHalfLifeBlocks
	}
	if d.MinDifficulty != nil {
		w.HasMinDifficulty = true
		w.MinDifficulty = d.MinDifficulty.Bytes()
	}
	if d.MinTxBaseFee != nil {
		w.HasMinBaseFee = true
		w.MinBaseFee = d.MinTxBaseFee.Bytes()
	}
	if d.MinTxByteFee != nil {
		w.HasMinByteFee = true
		w.MinByteFee = d.MinTxByteFee.Bytes()
	}
	return w
}

func (w *rlpNetworkParamsSet) decode() *PayloadNetworkParamsSetData {
	d := &PayloadNetworkParamsSetData{}
	if w.HasBlockReward {
		v := NewWeiFromBytes(w.BlockReward)
		d.BlockReward = &v
	}
	if w.HasPoolAddress {
		v := w.PoolAddress
		d.BlockRewardPoolAddress = &v
	}
	if w.HasTargetTimeMs {
		v := w.TargetTimeMs
		d.TargetMiningTimeMs = &v
	}
	if w.HasHalfLife {
		v := w.HalfLifeBlocks
		d.AsertHalfLifeBlocks = &v
	}
	if w.HasMinDifficulty {
		v := NewWeiFromBytes(w.MinDifficulty)
		d.MinDifficulty = &v
	}
	if w.HasMinBaseFee {
		v := NewWeiFromBytes(w.MinBaseFee)
		d.MinTxBaseFee = &v
	}
	if w.HasMinByteFee {
		v := NewWeiFromBytes(w.MinByteFee)
		d.MinTxByteFee = &v
	}
	return d
}

type rlpTokenCreate struct {
	Name             string
	SmallestUnitName string
	Decimals         uint8
	WebsiteURL       string
	LogoURL          string
	HasMaxSupply     bool
	MaxSupply        []byte
	UserBurnable     bool
}

func encodeTokenCreate(d *PayloadTokenCreateData) rlpTokenCreate {
	w := rlpTokenCreate{
		Name:             d.Name,
		SmallestUnitName: d.SmallestUnitName,
		Decimals:         d.Decimals,
		WebsiteURL:       d.WebsiteURL,
		LogoURL:          d.LogoURL,
		UserBurnable:     d.UserBurnable,
	}
	if d.MaxSupply != nil {
		w.HasMaxSupply = true
		w.MaxSupply = d.MaxSupply.Bytes()
	}
	return w
}

func (w *rlpTokenCreate) decode() *PayloadTokenCreateData {
	d := &PayloadTokenCreateData{
		Name:             w.Name,
		SmallestUnitName: w.SmallestUnitName,
		Decimals:         w.Decimals,
		WebsiteURL:       w.WebsiteURL,
		LogoURL:          w.LogoURL,
		UserBurnable:     w.UserBurnable,
	}
	if w.HasMaxSupply {
		v := NewWeiFromBytes(w.MaxSupply)
		d.MaxSupply = &v
	}
	return d
}

type rlpTokenUpdate struct {
	TokenAddress     Address
	HasName          bool
	Name             string
	HasUnitName      bool
	SmallestUnitName string
	HasWebsiteURL    bool
	WebsiteURL       string
	HasLogoURL       bool
	LogoURL          string
}

func encodeTokenUpdate(d *PayloadTokenUpdateData) rlpTokenUpdate {
	w := rlpTokenUpdate{TokenAddress: d.TokenAddress}
	if d.Name != nil {
		w.HasName, w.Name = true, *d.Name
	}
	if d.SmallestUnitName != nil {
		w.HasUnitName, w.SmallestUnitName = true, *d.SmallestUnitName
	}
	if d.WebsiteURL != nil {
		w.HasWebsiteURL, w.WebsiteURL = true, *d.WebsiteURL
	}
	if d.LogoURL != nil {
		w.HasLogoURL, w.LogoURL = true, *d.LogoURL
	}
	return w
}

func (w *rlpTokenUpdate) decode() *PayloadTokenUpdateData {
	d := &PayloadTokenUpdateData{TokenAddress: w.TokenAddress}
	if w.HasName {
		v := w.Name
		d.Name = &v
	}
	if w.HasUnitName {
		v := w.SmallestUnitName
		d.SmallestUnitName = &v
	}
	if w.HasWebsiteURL {
		v := w.WebsiteURL
		d.WebsiteURL = &v
	}
	if w.HasLogoURL {
		v := w.LogoURL
		d.LogoURL = &v
	}
	return d
}

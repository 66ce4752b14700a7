package state

// Key prefixes, one namespace per engine. Every concrete key runs through
// hashKey so stored keys are uniform-length Keccak digests.
var (
	bondInfoKey       = []byte("bond/info")
	bondTermsKey      = []byte("bond/terms")
	bondAdjustmentKey = []byte("bond/adjustment")
	bondDebtKey       = []byte("bond/debt")
	bondRecordPrefix  = []byte("bond/record")

	treasuryInfoKey       = []byte("treasury/info")
	treasuryAssetsKey     = []byte("treasury/assets")
	treasuryAssetPrefix   = []byte("treasury/asset")
	treasuryDepositorsKey = []byte("treasury/depositors")
	treasuryDepositorFlag = []byte("treasury/depositor")
	treasuryPaidPrefix    = []byte("treasury/paid")

	tokenInfoPrefix      = []byte("token/info")
	tokenBalancePrefix   = []byte("token/balance")
	tokenAllowancePrefix = []byte("token/allowance")
	tokenSupplyPrefix    = []byte("token/supply")

	zapInfoKey = []byte("zap/info")

	stakingLockedPrefix = []byte("staking/locked")
	stakingTotalKey     = []byte("staking/total")

	pausePrefix    = []byte("pause")
	chainHeightKey = []byte("chain/height")
)

package sport

// Training は上流スケジュールAPIが返す1エントリを表す。
// 開始・終了時刻は上流のローカル表記のまま保持し、パースは呼び出し元が
// 基準タイムゾーンを適用して行う。
type Training struct {
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

// ExtendedProps はスケジュールエントリの付加情報を表す。
type ExtendedProps struct {
	ID            int64  `json:"id"`
	CheckedIn     bool   `json:"checked_in"`
	TrainingClass string `json:"training_class"`
}

// Teacher はトレーニング詳細に含まれる講師情報を表す。
type Teacher struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// TrainingDetail はトレーニング詳細APIの正規化済みレスポンスを表す。
type TrainingDetail struct {
	Description string
	Teachers    []Teacher
	Accredited  bool
}

// trainingDetailResponse は詳細APIのワイヤーフォーマット。
type trainingDetailResponse struct {
	Training struct {
		Group struct {
			Sport struct {
				Description string `json:"description"`
			} `json:"sport"`
			Teachers   []Teacher `json:"teachers"`
			Accredited bool      `json:"accredited"`
		} `json:"group"`
	} `json:"training"`
}

package repository

import "errors"

// ErrOpenShiftExists は同一ユーザーのオープンシフトが既に存在することを示す。
// shifts(user_id) WHERE clock_out_at IS NULL の部分ユニークインデックスに
// 弾かれた場合に返す。アプリ層の事前チェックと併せた二重の防御線。
var ErrOpenShiftExists = errors.New("an open shift already exists for this user")
